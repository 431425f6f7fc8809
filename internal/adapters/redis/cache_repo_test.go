package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRepo_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	repo := NewCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "offline:v1:/index.html", []byte("<html></html>"), 0))

	got, err := repo.Get(ctx, "offline:v1:/index.html")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html></html>"), got)
}

func TestCacheRepo_GetMissingKeyReturnsNil(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	repo := NewCacheRepo(client)

	got, err := repo.Get(context.Background(), "offline:v1:/missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheRepo_EmptyKeyRejected(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	repo := NewCacheRepo(client)
	ctx := context.Background()

	assert.Error(t, repo.Set(ctx, "", []byte("x"), 0))
	_, err := repo.Get(ctx, "")
	assert.Error(t, err)
	_, err = repo.Delete(ctx, "")
	assert.Error(t, err)
	_, err = repo.Keys(ctx, "")
	assert.Error(t, err)
}

func TestCacheRepo_DeleteAndExists(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	repo := NewCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), 0))

	exists, err := repo.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	deleted, err := repo.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, deleted)

	exists, err = repo.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCacheRepo_SetIfNotExists(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	repo := NewCacheRepo(client)
	ctx := context.Background()

	set, err := repo.SetIfNotExists(ctx, "nx", []byte("first"), time.Minute)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = repo.SetIfNotExists(ctx, "nx", []byte("second"), time.Minute)
	require.NoError(t, err)
	assert.False(t, set)

	got, err := repo.Get(ctx, "nx")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestCacheRepo_SetTTL(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	repo := NewCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "ttl-key", []byte("v"), 0))

	ok, err := repo.SetTTL(ctx, "ttl-key", 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SetTTL(ctx, "no-such-key", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	time.Sleep(200 * time.Millisecond)
	got, err := repo.Get(ctx, "ttl-key")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheRepo_KeysByPattern(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	repo := NewCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "offline:central-sci-v1:/index.html", []byte("a"), 0))
	require.NoError(t, repo.Set(ctx, "offline:central-sci-v1:/css/styles.css", []byte("b"), 0))
	require.NoError(t, repo.Set(ctx, "offline:central-sci-v2:/index.html", []byte("c"), 0))

	keys, err := repo.Keys(ctx, "offline:central-sci-v1:*")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestCacheRepo_Health(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	repo := NewCacheRepo(client)
	assert.NoError(t, repo.Health(context.Background()))
}
