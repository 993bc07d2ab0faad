package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/vendorbill/internal/ratelimit"
	"github.com/smallbiznis/vendorbill/internal/vendorcontext"
	"github.com/smallbiznis/vendorbill/pkg/telemetry"
	"go.uber.org/zap"
)

// VendorContext copies the vendor and actor role headers into the request
// context. Authentication happens upstream; a malformed vendor id is
// rejected, a missing one is left for the handlers to decide.
func VendorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if raw := strings.TrimSpace(c.GetHeader(vendorcontext.VendorHeader)); raw != "" {
			vendorID, ok := vendorcontext.ParseVendorID(raw)
			if !ok {
				AbortWithError(c, ErrMissingVendor)
				return
			}
			ctx = vendorcontext.WithVendorID(ctx, vendorID)
		}
		if role := c.GetHeader(vendorcontext.RoleHeader); strings.TrimSpace(role) != "" {
			ctx = vendorcontext.WithRole(ctx, role)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireVendor rejects requests that carry no vendor.
func RequireVendor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := vendorcontext.VendorIDFromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrMissingVendor)
			return
		}
		c.Next()
	}
}

// APIMetrics records request counts and latency per matched route.
func APIMetrics(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPIRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// WriteRateLimit throttles mutating requests per vendor. Reads pass
// through, and a limiter backend failure lets the request proceed.
func WriteRateLimit(limiter *ratelimit.VendorLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Active() || isReadMethod(c.Request.Method) {
			c.Next()
			return
		}

		vendor := "anonymous"
		if vendorID, ok := vendorcontext.VendorIDFromContext(c.Request.Context()); ok {
			vendor = vendorID.String()
		}

		res, err := limiter.Allow(c.Request.Context(), vendor, "write")
		if err != nil {
			log.Warn("rate limit check failed", zap.String("vendor_id", vendor), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func isReadMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
