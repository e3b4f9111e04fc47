package shared

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

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestIdempotencyClaim(t *testing.T) {
	mr, client := newRedis(t)
	store := NewIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Claim(ctx, "fees", "k1"))
	assert.True(t, mr.Exists("idempotency:fees:k1"))
	assert.Equal(t, time.Minute, mr.TTL("idempotency:fees:k1"))
	err := store.Claim(ctx, "fees", "k1")
	assert.True(t, errors.Is(err, ErrIdempotencyConflict))

	require.NoError(t, store.Claim(ctx, "admissions", "k1"), "keys are scoped")

	require.NoError(t, store.Release(ctx, "fees", "k1"))
	require.NoError(t, store.Claim(ctx, "fees", "k1"))

	mr.FastForward(2 * time.Minute)
	require.NoError(t, store.Claim(ctx, "fees", "k1"), "keys expire after retention")
}

func TestIdempotencyRejectsEmptyInput(t *testing.T) {
	mr, client := newRedis(t)
	store := NewIdempotencyStore(client, 0)
	ctx := context.Background()
	assert.EqualError(t, store.Claim(ctx, "fees", ""), "idempotency: key required")
	assert.EqualError(t, store.Claim(ctx, "", "k"), "idempotency: scope required")
	assert.Error(t, store.Release(ctx, "fees", ""))

	require.NoError(t, store.Claim(ctx, "fees", "k"))
	assert.Equal(t, 24*time.Hour, mr.TTL("idempotency:fees:k"))

	var missing *IdempotencyStore
	assert.Error(t, missing.Claim(ctx, "fees", "k"))
	assert.NoError(t, missing.Release(ctx, "fees", "k"))
}

func TestIdempotencyRedisDown(t *testing.T) {
	mr, client := newRedis(t)
	store := NewIdempotencyStore(client, time.Minute)
	mr.Close()
	err := store.Claim(context.Background(), "fees", "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrIdempotencyConflict))
}
