package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/vendorbill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLimiter(t *testing.T, client *redis.Client, rl config.RateLimitConfig) *VendorLimiter {
	t.Helper()
	return NewVendorLimiter(Params{
		Cfg:    config.Config{RateLimit: rl},
		Log:    zap.NewNop(),
		Client: client,
	})
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestVendorLimiter_DeniesAfterBurst(t *testing.T) {
	limiter := newLimiter(t, newRedis(t), config.RateLimitConfig{Enabled: true, Rate: 0.01, Burst: 2})
	require.True(t, limiter.Active())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, "42", "write")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 2, res.Limit)
	}

	res, err := limiter.Allow(ctx, "42", "write")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.RetryAfter.Seconds(), 0.0)

	other, err := limiter.Allow(ctx, "43", "write")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestVendorLimiter_InactiveAllows(t *testing.T) {
	ctx := context.Background()

	noRedis := newLimiter(t, nil, config.RateLimitConfig{Enabled: true, Rate: 1, Burst: 1})
	assert.False(t, noRedis.Active())

	disabled := newLimiter(t, newRedis(t), config.RateLimitConfig{Enabled: false, Rate: 1, Burst: 1})
	assert.False(t, disabled.Active())

	for _, l := range []*VendorLimiter{noRedis, disabled} {
		for i := 0; i < 3; i++ {
			res, err := l.Allow(ctx, "42", "write")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
		}
	}
}

func TestTokenBucket_RejectsBadArguments(t *testing.T) {
	bucket := NewTokenBucket(newRedis(t))
	ctx := context.Background()

	_, err := bucket.Allow(ctx, "", 1, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(ctx, "k", 0, 1)
	assert.Error(t, err)

	var nilBucket *TokenBucket
	_, err = nilBucket.Allow(ctx, "k", 1, 1)
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "vendorbill:ratelimit:42:write", Key(" 42 ", "write"))
	assert.Equal(t, "vendorbill:ratelimit:anonymous:api", Key("", ""))
}
