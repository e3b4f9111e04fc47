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

func TestLockerExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := NewLocker(client, 5*time.Second)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "fees:F1:lock")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "fees:F1:lock")
	assert.True(t, errors.Is(err, ErrLocked))

	other, err := locker.Acquire(ctx, "fees:F2:lock")
	require.NoError(t, err)
	other()

	release()
	again, err := locker.Acquire(ctx, "fees:F1:lock")
	require.NoError(t, err)
	again()
}

func TestLockerExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := NewLocker(client, time.Second)
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists("k"), "a stale release must not drop the new holder's lock")
	fresh()
	assert.False(t, mr.Exists("k"))
}

func TestNewPing(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	_, err := New(context.Background(), Options{Addr: mr.Addr()})
	assert.Error(t, err)

	client, err := New(context.Background(), Options{Addr: mr.Addr(), Password: "s3cret", DB: 2})
	require.NoError(t, err)
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.Select(2)
	assert.True(t, mr.Exists("k"))
	_ = client.Close()
}

func TestOptionsAsynq(t *testing.T) {
	opt := Options{Addr: "redis:6379", Password: "pw", DB: 3}.Asynq()
	assert.Equal(t, "redis:6379", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 3, opt.DB)
}
