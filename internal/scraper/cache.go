package scraper

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pfrederiksen/exam-events/internal/logger"
)

const DefaultCacheTTL = 6 * time.Hour

// CachedFetcher serves pages from Redis when present and stores fresh fetches.
// Cache failures are logged and never fail a fetch.
type CachedFetcher struct {
	next   PageFetcher
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// NewCachedFetcher connects to Redis at redisURL (redis://host:6379/0) and wraps next.
func NewCachedFetcher(ctx context.Context, next PageFetcher, redisURL string, ttl time.Duration, log logger.Logger) (*CachedFetcher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedFetcher{next: next, client: client, ttl: ttl, log: log}, nil
}

// Get returns the cached body for pageURL or fetches and caches it.
func (c *CachedFetcher) Get(ctx context.Context, pageURL string) (string, error) {
	key := cacheKey(pageURL)

	body, err := c.client.Get(ctx, key).Result()
	if err == nil {
		c.log.Debug("page cache hit", logger.String("url", pageURL))
		return body, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.log.Warn("page cache read failed", logger.String("url", pageURL), logger.Err(err))
	}

	body, err = c.next.Get(ctx, pageURL)
	if err != nil {
		return "", err
	}

	if err := c.client.Set(ctx, key, body, c.ttl).Err(); err != nil {
		c.log.Warn("page cache write failed", logger.String("url", pageURL), logger.Err(err))
	}
	return body, nil
}

// Close closes the Redis connection.
func (c *CachedFetcher) Close() error {
	return c.client.Close()
}

func cacheKey(pageURL string) string {
	hash := sha256.Sum256([]byte(pageURL))
	return fmt.Sprintf("exam-events:page:%x", hash[:12])
}
