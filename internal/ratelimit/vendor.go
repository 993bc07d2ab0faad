package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/vendorbill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	Client *redis.Client `optional:"true"`
}

// VendorLimiter applies one token bucket per vendor and scope.
type VendorLimiter struct {
	bucket  *TokenBucket
	enabled bool
	rate    float64
	burst   int
}

func NewVendorLimiter(p Params) *VendorLimiter {
	cfg := p.Cfg.RateLimit
	limiter := &VendorLimiter{
		bucket:  NewTokenBucket(p.Client),
		enabled: cfg.Enabled,
		rate:    cfg.Rate,
		burst:   cfg.Burst,
	}

	switch {
	case !cfg.Enabled:
		p.Log.Info("vendor rate limit disabled")
	case limiter.bucket == nil:
		p.Log.Info("vendor rate limit inactive, redis not configured")
	case cfg.Rate <= 0 || cfg.Burst <= 0:
		p.Log.Warn("vendor rate limit inactive, rate and burst must be positive",
			zap.Float64("rate", cfg.Rate),
			zap.Int("burst", cfg.Burst),
		)
	}
	return limiter
}

func (l *VendorLimiter) Active() bool {
	return l != nil && l.enabled && l.bucket != nil && l.rate > 0 && l.burst > 0
}

// Allow reports whether the vendor may make another request in scope.
// An inactive limiter always allows.
func (l *VendorLimiter) Allow(ctx context.Context, vendorID, scope string) (*Result, error) {
	if !l.Active() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, Key(vendorID, scope), l.rate, l.burst)
}

func Key(vendorID, scope string) string {
	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" {
		vendorID = "anonymous"
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = "api"
	}
	return fmt.Sprintf("vendorbill:ratelimit:%s:%s", vendorID, scope)
}
