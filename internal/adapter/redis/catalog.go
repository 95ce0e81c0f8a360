// Package redis caches the celestial body catalog in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/observability"
)

// CatalogKey holds the JSON-encoded catalog.
const CatalogKey = "observatory:celestial-bodies"

// CatalogSource is anything that can list the celestial bodies, typically
// the platform API client.
type CatalogSource interface {
	CelestialBodies(ctx context.Context) ([]domain.CelestialBody, error)
}

// CachedCatalog serves the catalog from Redis and falls back to the inner
// source on a miss or a cache failure.
type CachedCatalog struct {
	client  *goredis.Client
	inner   CatalogSource
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedCatalog wraps inner with a Redis cache whose entries live for ttl.
func NewCachedCatalog(client *goredis.Client, inner CatalogSource, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *CachedCatalog {
	return &CachedCatalog{client: client, inner: inner, ttl: ttl, metrics: metrics, logger: logger}
}

// Open parses a redis:// URL and verifies the server answers.
func Open(ctx context.Context, rawURL string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := goredis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (c *CachedCatalog) CelestialBodies(ctx context.Context) ([]domain.CelestialBody, error) {
	raw, err := c.client.Get(ctx, CatalogKey).Bytes()
	switch {
	case err == nil:
		var bodies []domain.CelestialBody
		if jerr := json.Unmarshal(raw, &bodies); jerr == nil {
			c.metrics.CatalogCache.WithLabelValues("hit").Inc()
			return bodies, nil
		}
		c.logger.Warn("discarding corrupt catalog cache entry", "key", CatalogKey)
		c.metrics.CatalogCache.WithLabelValues("error").Inc()
	case errors.Is(err, goredis.Nil):
		c.metrics.CatalogCache.WithLabelValues("miss").Inc()
	default:
		c.logger.Warn("catalog cache read failed", "error", err)
		c.metrics.CatalogCache.WithLabelValues("error").Inc()
	}

	bodies, err := c.inner.CelestialBodies(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(bodies); err == nil {
		if err := c.client.Set(ctx, CatalogKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn("catalog cache write failed", "error", err)
		}
	}
	return bodies, nil
}

// Invalidate drops the cached catalog.
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, CatalogKey).Err()
}
