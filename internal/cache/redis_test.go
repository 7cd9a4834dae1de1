package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestRedisStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedis(t)

	_, err := s.Get(ctx, OrderKey("o1"))
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Set(ctx, OrderKey("o1"), []byte(`{"id":"o1"}`), DefaultTTL))
	got, err := s.Get(ctx, OrderKey("o1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"o1"}`, string(got))
	assert.Equal(t, DefaultTTL, mr.TTL(OrderKey("o1")))

	require.NoError(t, s.Delete(ctx, OrderKey("o1")))
	_, err = s.Get(ctx, OrderKey("o1"))
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStore_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedis(t)

	require.NoError(t, s.Set(ctx, ProductKey("p1"), []byte("x"), time.Hour))
	mr.FastForward(time.Hour + time.Second)

	_, err := s.Get(ctx, ProductKey("p1"))
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStore_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedis(t)

	for i := 0; i < 1200; i++ {
		require.NoError(t, s.Set(ctx, SellerOrdersKey("s1", fmt.Sprintf("page=%d", i)), []byte("x"), DefaultTTL))
	}
	require.NoError(t, s.Set(ctx, SellerOrdersKey("s2", "page=1"), []byte("x"), DefaultTTL))

	n, err := s.DeleteByPrefix(ctx, SellerOrdersPrefix("s1"))
	require.NoError(t, err)
	assert.Equal(t, 1200, n)

	_, err = s.Get(ctx, SellerOrdersKey("s2", "page=1"))
	assert.NoError(t, err)
}

func TestRedisStore_DeleteByPrefixEscapesGlob(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedis(t)

	require.NoError(t, s.Set(ctx, "orders:customer:a*:page=1", []byte("x"), DefaultTTL))
	require.NoError(t, s.Set(ctx, "orders:customer:ab:page=1", []byte("x"), DefaultTTL))

	n, err := s.DeleteByPrefix(ctx, "orders:customer:a*:")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Get(ctx, "orders:customer:ab:page=1")
	assert.NoError(t, err)
}

func TestRedisStore_Ping(t *testing.T) {
	s, mr := newTestRedis(t)
	require.NoError(t, s.Ping(context.Background()))

	mr.Close()
	assert.Error(t, s.Ping(context.Background()))

	var st Store = NewMemoryStore()
	_, ok := st.(Pinger)
	assert.False(t, ok, "the in-process store has nothing to ping")
}
