package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// originKeyPrefix namespaces relayed origin bodies in Redis.
const originKeyPrefix = "origin:"

// CacheService is a Redis cache-aside layer for bodies relayed from the
// origin. Local answers are never cached: they change only on reload and
// are cheap to recompute.
type CacheService struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCacheService creates a new CacheService. If redisURL is empty or the
// connection fails, it returns a CacheService with a nil client and every
// operation becomes a no-op.
func NewCacheService(redisURL string, ttl time.Duration, logger zerolog.Logger) *CacheService {
	if redisURL == "" {
		logger.Info().Msg("redis: no URL configured, origin caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis: invalid URL, origin caching disabled")
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis: connection failed, origin caching disabled")
		_ = rdb.Close()
		return &CacheService{}
	}

	logger.Info().Dur("ttl", ttl).Msg("redis: connected, origin caching enabled")
	return &CacheService{rdb: rdb, ttl: ttl}
}

// NewCacheServiceWithClient wraps an existing client.
func NewCacheServiceWithClient(rdb *redis.Client, ttl time.Duration) *CacheService {
	return &CacheService{rdb: rdb, ttl: ttl}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetOrigin returns a cached origin body, or nil when absent or disabled.
func (c *CacheService) GetOrigin(ctx context.Context, key string) ([]byte, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, originKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

// SetOrigin stores an origin body verbatim.
func (c *CacheService) SetOrigin(ctx context.Context, key string, body []byte) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Set(ctx, originKeyPrefix+key, body, c.ttl).Err()
}

// PurgeOrigin deletes every cached origin body. Called after a snapshot is
// swapped in, since the local table may now answer what used to miss.
func (c *CacheService) PurgeOrigin(ctx context.Context) (int, error) {
	if c.rdb == nil {
		return 0, nil
	}

	deleted := 0
	iter := c.rdb.Scan(ctx, 0, originKeyPrefix+"*", 500).Iterator()
	batch := make([]string, 0, 500)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.rdb.Del(ctx, batch...).Result()
		deleted += int(n)
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, flush()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
