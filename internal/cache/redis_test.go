package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/pro-access/internal/config"
)

type testStruct struct {
	Name string
	Age  int
}

func setupTestCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expected := testStruct{Name: "Alice", Age: 30}
	err := cache.Set(ctx, "user:1", expected, time.Minute)
	require.NoError(t, err)

	var actual testStruct
	found, err := cache.Get(ctx, "user:1", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out testStruct
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetEmptyStringIsFound(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "role", "", time.Minute))

	out := "sentinel"
	found, err := cache.Get(ctx, "role", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "", out)
}

func TestExpiration(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", true, time.Minute))
	mr.FastForward(time.Minute)

	var out bool
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	err := cache.Set(ctx, "key", "value", time.Minute)
	require.NoError(t, err)

	err = cache.Invalidate(ctx, "key")
	require.NoError(t, err)

	var out string
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidatePattern(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	for _, key := range []string{
		"access:pro:u1:o1:none",
		"access:pro:u1:global:export",
		"access:pro:u2:o1:none",
		"access:role:u1:o1",
	} {
		require.NoError(t, cache.Set(ctx, key, true, time.Minute))
	}

	removed, err := cache.InvalidatePattern(ctx, "access:pro:u1:*")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.False(t, mr.Exists("access:pro:u1:o1:none"))
	assert.False(t, mr.Exists("access:pro:u1:global:export"))
	assert.True(t, mr.Exists("access:pro:u2:o1:none"))
	assert.True(t, mr.Exists("access:role:u1:o1"))
}

func TestInvalidatePatternManyKeys(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	for i := range scanBatch*2 + 7 {
		require.NoError(t, mr.Set("access:role:u:"+strconv.Itoa(i), "1"))
	}

	removed, err := cache.InvalidatePattern(ctx, "access:role:*")
	require.NoError(t, err)
	assert.Equal(t, scanBatch*2+7, removed)
	assert.Empty(t, mr.Keys())
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	err := cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err()
	require.NoError(t, err)

	var out testStruct
	found, err := cache.Get(ctx, "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestGetServerDown(t *testing.T) {
	cache, mr := setupTestCache(t)
	mr.Close()

	var out bool
	found, err := cache.Get(context.Background(), "key", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:1",
		DialTimeout:  100 * time.Millisecond,
	}

	cache, err := InitServer(context.Background(), cfg)
	assert.Nil(t, cache)
	assert.Error(t, err)
}
