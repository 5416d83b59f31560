package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	return mr, rdb
}

func TestRedisStore_SetGetDel(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	store := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, SessionKey("c1"), `{"a":1}`))
	got, err := store.Get(ctx, SessionKey("c1"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)
	assert.Equal(t, time.Hour, mr.TTL("session:c1"))

	require.NoError(t, store.Del(ctx, SessionKey("c1"), InterviewConfigKey("s1", "c1")))
	_, err = store.Get(ctx, SessionKey("c1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_NoTTL(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	store := NewRedisStore(rdb, 0)

	require.NoError(t, store.Set(context.Background(), "k", "v"))
	assert.Equal(t, time.Duration(0), mr.TTL("k"))
}

func TestRedisStore_UnavailableIsDistinct(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	store := NewRedisStore(rdb, time.Minute)
	mr.Close()

	_, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, errors.Is(err, ErrNotFound))

	assert.ErrorIs(t, store.Set(context.Background(), "k", "v"), ErrUnavailable)
	assert.ErrorIs(t, store.Ping(context.Background()), ErrUnavailable)
}

func TestRedisStore_Publish(t *testing.T) {
	_, rdb := setupTestRedis(t)
	store := NewRedisStore(rdb, time.Minute)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "interview.completed")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Publish(ctx, "interview.completed", []byte("done")))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "done", msg.Payload)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "session:abc", SessionKey("abc"))
	assert.Equal(t, "interview_config:s1:abc", InterviewConfigKey("s1", "abc"))
}
