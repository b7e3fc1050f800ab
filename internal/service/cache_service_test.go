package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
)

type memoryCache struct {
	values      map[string][]byte
	ttls        map[string]time.Duration
	invalidated []string
	getErr      error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	return nil
}

func TestCacheServiceGetSet(t *testing.T) {
	backend := newMemoryCache()
	metrics := NewMetricsService()
	cache := NewCacheService(backend, metrics, 5*time.Minute, nil)
	ctx := context.Background()

	var out []string
	assert.False(t, cache.Get(ctx, "k", &out))

	cache.Set(ctx, "k", []string{"a", "b"}, 0)
	assert.Equal(t, 5*time.Minute, backend.ttls["k"])
	assert.True(t, cache.Get(ctx, "k", &out))
	assert.Equal(t, []string{"a", "b"}, out)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheOps.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheOps.WithLabelValues("miss")))
}

func TestCacheServiceBackendErrorIsMiss(t *testing.T) {
	backend := newMemoryCache()
	backend.getErr = errors.New("dial tcp: connection refused")
	metrics := NewMetricsService()
	cache := NewCacheService(backend, metrics, 0, nil)

	var out []string
	assert.False(t, cache.Get(context.Background(), "k", &out))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheOps.WithLabelValues("error")))
}

func TestCacheServiceDisabled(t *testing.T) {
	var cache *CacheService
	assert.False(t, cache.Enabled())

	var out []string
	assert.False(t, cache.Get(context.Background(), "k", &out))
	cache.Set(context.Background(), "k", out, time.Second)
	cache.Invalidate(context.Background(), "*")

	assert.False(t, NewCacheService(nil, nil, 0, nil).Enabled())
}
