package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientDegrades(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest map[string]string

	assert.ErrorIs(t, repo.Get(context.Background(), "ledger:stu-1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "ledger:stu-1", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "ledger:*"))
	assert.NoError(t, repo.Ping(context.Background()))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryReportsUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	repo := NewCacheRepository(client, zap.NewNop())
	defer repo.Close() //nolint:errcheck

	var dest map[string]string
	err := repo.Get(context.Background(), "ledger:stu-1", &dest)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.Error(t, repo.Ping(context.Background()))
}

func TestNamespacedKeys(t *testing.T) {
	assert.Equal(t, "sics:ledger:stu-1", namespaced("ledger:stu-1"))
	assert.Equal(t, "sics:ledger:*", namespaced("ledger:*"))
}
