// Package redis caches computed performance payloads in Redis.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lorrc/service-desk-analytics/internal/config"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

const keyPrefix = "sda:metrics:"

// NewClient connects to Redis using the provided configuration. An
// unreachable server is logged, not fatal: the cache degrades to misses.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) *goredis.Client {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", "addr", cfg.Addr, "error", err)
	} else {
		logger.Info("connected to redis", "addr", cfg.Addr)
	}
	return client
}

// MetricsCache stores PerformanceMetrics as JSON under a key derived
// from the normalized filter.
type MetricsCache struct {
	client *goredis.Client
	ttl    time.Duration
}

var _ ports.MetricsCache = (*MetricsCache)(nil)

func NewMetricsCache(client *goredis.Client, ttl time.Duration) *MetricsCache {
	return &MetricsCache{client: client, ttl: ttl}
}

// Get returns the cached payload for filter. A missing key is reported
// as (nil, false, nil).
func (c *MetricsCache) Get(ctx context.Context, filter domain.MetricsFilter) (*domain.PerformanceMetrics, bool, error) {
	b, err := c.client.Get(ctx, CacheKey(filter)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached metrics: %w", err)
	}

	var metrics domain.PerformanceMetrics
	if err := json.Unmarshal(b, &metrics); err != nil {
		return nil, false, fmt.Errorf("decoding cached metrics: %w", err)
	}
	return &metrics, true, nil
}

// Set stores metrics for filter with the configured TTL.
func (c *MetricsCache) Set(ctx context.Context, filter domain.MetricsFilter, metrics *domain.PerformanceMetrics) error {
	b, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	if err := c.client.Set(ctx, CacheKey(filter), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing cached metrics: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity.
func (c *MetricsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// CacheKey hashes the normalized filter so equivalent filters share an
// entry.
func CacheKey(filter domain.MetricsFilter) string {
	b, _ := json.Marshal(filter.Normalized())
	sum := sha256.Sum256(b)
	return keyPrefix + hex.EncodeToString(sum[:])
}
