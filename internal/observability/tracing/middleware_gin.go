package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/vendorbill/internal/observability/context"
	"github.com/smallbiznis/vendorbill/internal/vendorcontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span per request. Vendor and document
// attributes are read after the handlers ran, once the vendor middleware
// has parsed them.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("vendorbill/http")
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		method := strings.ToUpper(c.Request.Method)

		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			if member, err := baggage.NewMember("request_id", requestID); err == nil {
				if bag, err := baggage.New(member); err == nil {
					ctx = baggage.ContextWithBaggage(ctx, bag)
				}
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)
		span.SetAttributes(SafeAttributes(append(
			[]attribute.KeyValue{
				attribute.String("http.method", method),
				attribute.String("http.route", route),
				attribute.Int("http.status_code", status),
			},
			requestAttributes(c)...,
		)...)...)

		switch {
		case status == http.StatusTooManyRequests:
			span.SetAttributes(attribute.Bool("vendor.rate_limited", true))
		case status >= http.StatusInternalServerError:
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func requestAttributes(c *gin.Context) []attribute.KeyValue {
	ctx := c.Request.Context()
	var attrs []attribute.KeyValue
	if vendorID, ok := vendorcontext.VendorIDFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("vendor.id", vendorID.String()))
	}
	if role := vendorcontext.RoleFromContext(ctx); role != "" {
		attrs = append(attrs, attribute.String("vendor.actor_role", role))
	}
	if strings.HasPrefix(c.FullPath(), "/api/v1/documents/") {
		if id := c.Param("id"); id != "" {
			attrs = append(attrs, attribute.String("document.id", id))
		}
	}
	if kind := c.Param("kind"); kind != "" {
		attrs = append(attrs, attribute.String("document.kind", kind))
	}
	if remaining := c.Writer.Header().Get("X-RateLimit-Remaining"); remaining != "" {
		attrs = append(attrs, attribute.String("vendor.rate_limit_remaining", remaining))
	}
	return attrs
}
