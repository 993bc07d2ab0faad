package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	sharedcache "github.com/smallbiznis/vendorbill/internal/cache"
	"github.com/smallbiznis/vendorbill/internal/config"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyCatalogGeneration = "vendorbill:tax:catalog:gen"
	keyCatalog           = "vendorbill:tax:catalog:%d:%s"

	defaultTTL = 5 * time.Minute
)

// CatalogCache holds per-vendor tax catalogs. Platform rate changes touch
// every vendor, so they invalidate everything at once.
type CatalogCache interface {
	Get(ctx context.Context, vendorID snowflake.ID) (*taxdomain.Catalog, bool)
	Set(ctx context.Context, vendorID snowflake.ID, catalog *taxdomain.Catalog)
	InvalidateVendor(ctx context.Context, vendorID snowflake.ID)
	InvalidateAll(ctx context.Context)
}

type Params struct {
	fx.In

	Client *redis.Client `optional:"true"`
	Config config.Config
	Log    *zap.Logger
}

func New(p Params) CatalogCache {
	ttl := time.Duration(p.Config.TaxCacheTTL) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if p.Client == nil {
		return NewMemoryCatalogCache(ttl)
	}
	return NewRedisCatalogCache(p.Client, ttl, p.Log)
}

type redisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisCatalogCache(client *redis.Client, ttl time.Duration, log *zap.Logger) CatalogCache {
	return &redisCatalogCache{
		client: client,
		ttl:    ttl,
		log:    log.Named("tax.cache"),
	}
}

func (c *redisCatalogCache) Get(ctx context.Context, vendorID snowflake.ID) (*taxdomain.Catalog, bool) {
	key, err := c.key(ctx, vendorID)
	if err != nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("catalog cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var catalog taxdomain.Catalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		c.log.Warn("catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		return nil, false
	}
	return &catalog, true
}

func (c *redisCatalogCache) Set(ctx context.Context, vendorID snowflake.ID, catalog *taxdomain.Catalog) {
	if catalog == nil {
		return
	}
	key, err := c.key(ctx, vendorID)
	if err != nil {
		return
	}
	payload, err := json.Marshal(catalog)
	if err != nil {
		c.log.Warn("catalog cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("catalog cache write failed", zap.Error(err))
	}
}

func (c *redisCatalogCache) InvalidateVendor(ctx context.Context, vendorID snowflake.ID) {
	key, err := c.key(ctx, vendorID)
	if err != nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warn("catalog cache invalidate failed", zap.Error(err))
	}
}

// InvalidateAll bumps the generation so every existing key is orphaned and
// left to expire.
func (c *redisCatalogCache) InvalidateAll(ctx context.Context) {
	if err := c.client.Incr(ctx, keyCatalogGeneration).Err(); err != nil {
		c.log.Warn("catalog cache generation bump failed", zap.Error(err))
	}
}

func (c *redisCatalogCache) key(ctx context.Context, vendorID snowflake.ID) (string, error) {
	gen, err := c.client.Get(ctx, keyCatalogGeneration).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn("catalog cache generation read failed", zap.Error(err))
		return "", err
	}
	return fmt.Sprintf(keyCatalog, gen, vendorID.String()), nil
}

type memoryCatalogCache struct {
	items sharedcache.Cache[snowflake.ID, taxdomain.Catalog]
	ttl   time.Duration
}

func NewMemoryCatalogCache(ttl time.Duration) CatalogCache {
	return &memoryCatalogCache{
		items: sharedcache.NewTTLCache[snowflake.ID, taxdomain.Catalog](),
		ttl:   ttl,
	}
}

func (c *memoryCatalogCache) Get(_ context.Context, vendorID snowflake.ID) (*taxdomain.Catalog, bool) {
	catalog, ok := c.items.Get(vendorID)
	if !ok {
		return nil, false
	}
	return &catalog, true
}

func (c *memoryCatalogCache) Set(_ context.Context, vendorID snowflake.ID, catalog *taxdomain.Catalog) {
	if catalog == nil {
		return
	}
	c.items.Set(vendorID, *catalog, c.ttl)
}

func (c *memoryCatalogCache) InvalidateVendor(_ context.Context, vendorID snowflake.ID) {
	c.items.Delete(vendorID)
}

func (c *memoryCatalogCache) InvalidateAll(context.Context) {
	c.items.Clear()
}
