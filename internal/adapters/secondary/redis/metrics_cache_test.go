package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey(domain.MetricsFilter{Scope: " AFTER ", Category: "network "})
	b := CacheKey(domain.MetricsFilter{Scope: domain.ScopeAfter, Category: "network"})
	c := CacheKey(domain.MetricsFilter{Scope: domain.ScopeBefore, Category: "network"})

	assert.True(t, strings.HasPrefix(a, keyPrefix))
	assert.Equal(t, a, b, "equivalent filters share a key")
	assert.NotEqual(t, a, c)
	assert.Equal(t, CacheKey(domain.MetricsFilter{}), CacheKey(domain.MetricsFilter{Scope: domain.ScopeAll}))
}

func startRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestMetricsCache_RoundTrip(t *testing.T) {
	client := startRedis(t)
	cache := NewMetricsCache(client, time.Minute)
	ctx := context.Background()
	filter := domain.MetricsFilter{Scope: domain.ScopeBefore, DateFrom: "2025-01-01"}

	// 1. Miss
	got, ok, err := cache.Get(ctx, filter)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)

	// 2. Store, keeping nulls as nulls
	mttr := 12.5
	require.NoError(t, cache.Set(ctx, filter, &domain.PerformanceMetrics{
		TotalTickets:         4,
		MTTRHours:            domain.MTTRSplit{Before: &mttr},
		BacklogThresholdDays: 7,
	}))

	// 3. Hit
	got, ok, err = cache.Get(ctx, filter)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, got.TotalTickets)
	require.NotNil(t, got.MTTRHours.Before)
	assert.Equal(t, 12.5, *got.MTTRHours.Before)
	assert.Nil(t, got.MTTRHours.After)
	assert.Nil(t, got.CSATScore)

	ttl, err := client.TTL(ctx, CacheKey(filter)).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	assert.NoError(t, cache.Ping(ctx))
}
