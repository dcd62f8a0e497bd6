package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	homeKey          = "webshop:catalog:home"
	productKeyPrefix = "webshop:catalog:product:"
)

var errCacheMiss = errors.New("cache miss")

// KV is the subset of a key/value cache the catalog needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisKV adapts a go-redis client to KV.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errCacheMiss
	}
	return b, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// CachedReader serves the home page and product details from a KV cache
// and falls back to next on a miss or cache error. Listings are not cached.
type CachedReader struct {
	next Reader
	kv   KV
	ttl  time.Duration
}

var (
	_ Reader      = (*CachedReader)(nil)
	_ Invalidator = (*CachedReader)(nil)
)

func NewCachedReader(next Reader, kv KV, ttl time.Duration) *CachedReader {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedReader{next: next, kv: kv, ttl: ttl}
}

func productKey(id int64) string {
	return productKeyPrefix + strconv.FormatInt(id, 10)
}

func (c *CachedReader) Home(ctx context.Context) (*Home, error) {
	var home Home
	if c.load(ctx, homeKey, &home) {
		return &home, nil
	}
	fresh, err := c.next.Home(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, homeKey, fresh)
	return fresh, nil
}

func (c *CachedReader) Products(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	return c.next.Products(ctx, q)
}

func (c *CachedReader) ProductDetails(ctx context.Context, id int64) (*ProductDetails, error) {
	key := productKey(id)
	var details ProductDetails
	if c.load(ctx, key, &details) {
		return &details, nil
	}
	fresh, err := c.next.ProductDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fresh)
	return fresh, nil
}

func (c *CachedReader) Invalidate(ctx context.Context, productId int64) {
	keys := []string{homeKey}
	if productId > 0 {
		keys = append(keys, productKey(productId))
	}
	if err := c.kv.Del(ctx, keys...); err != nil {
		zap.L().Warn("catalog cache invalidate failed", zap.Error(err), zap.String("namespace", "catalog"))
	}
}

func (c *CachedReader) load(ctx context.Context, key string, v interface{}) bool {
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, errCacheMiss) {
			zap.L().Warn("catalog cache read failed", zap.String("key", key), zap.Error(err), zap.String("namespace", "catalog"))
		}
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (c *CachedReader) store(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.kv.Set(ctx, key, data, c.ttl); err != nil {
		zap.L().Warn("catalog cache write failed", zap.String("key", key), zap.Error(err), zap.String("namespace", "catalog"))
	}
}
