package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hazmat-api/internal/models"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
)

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "hazmat:")
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "hazard-classes:all", []models.HazardClass{{Code: "3"}}, time.Minute))
	var out []models.HazardClass
	assert.True(t, appErrors.Is(repo.Get(ctx, "hazard-classes:all", &out), appErrors.ErrCacheMiss))
	assert.NoError(t, repo.DeleteByPattern(ctx, "hazard-classes:*"))
}

func TestCacheRepositoryBackendErrorIsNotAMiss(t *testing.T) {
	repo := NewCacheRepository(unreachableRedis(t), "hazmat:")

	var out []models.HazardClass
	err := repo.Get(context.Background(), "hazard-classes:all", &out)
	require.Error(t, err)
	assert.False(t, appErrors.Is(err, appErrors.ErrCacheMiss))
	assert.Contains(t, err.Error(), "redis get hazard-classes:all")
}

func TestCodeRepositoryWithoutClient(t *testing.T) {
	repo := NewCodeRepository(nil)
	ctx := context.Background()

	assert.Error(t, repo.Save(ctx, "lab@example.edu", "123456", time.Minute))
	assert.True(t, appErrors.Is(repo.Verify(ctx, "lab@example.edu", "123456", 5), appErrors.ErrInvalidCode))
}

func TestCodeKeyAndHashNormalise(t *testing.T) {
	repo := NewCodeRepository(nil)
	assert.Equal(t, "auth:code:lab@example.edu", repo.key("  Lab@Example.edu "))
	assert.Equal(t, hashCode("123456"), hashCode(" 123456\n"))
	assert.NotEqual(t, hashCode("123456"), hashCode("123457"))
}
