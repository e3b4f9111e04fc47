package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultClaimRetention = 24 * time.Hour

// ErrIdempotencyConflict is returned when a request key was already claimed.
var ErrIdempotencyConflict = errors.New("request key already used")

// IdempotencyStore records client-supplied request keys in Redis so a retried
// write is applied once. Keys live in a scope and expire after the retention.
type IdempotencyStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewIdempotencyStore builds a store. A non-positive retention means one day.
func NewIdempotencyStore(client *redis.Client, retention time.Duration) *IdempotencyStore {
	if retention <= 0 {
		retention = defaultClaimRetention
	}
	return &IdempotencyStore{client: client, retention: retention}
}

// Claim marks key as used within scope. A second claim before the key expires or is
// released fails with ErrIdempotencyConflict.
func (s *IdempotencyStore) Claim(ctx context.Context, scope, key string) error {
	if s == nil || s.client == nil {
		return errors.New("idempotency: no redis client")
	}
	redisKey, err := claimKey(scope, key)
	if err != nil {
		return err
	}
	claimed, err := s.client.SetNX(ctx, redisKey, time.Now().UTC().Format(time.RFC3339Nano), s.retention).Result()
	if err != nil {
		return fmt.Errorf("idempotency: claim: %w", err)
	}
	if !claimed {
		return ErrIdempotencyConflict
	}
	return nil
}

// Release frees a claimed key after the guarded write failed, so the client may retry.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if s == nil || s.client == nil {
		return nil
	}
	redisKey, err := claimKey(scope, key)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, redisKey).Err()
}

func claimKey(scope, key string) (string, error) {
	switch {
	case scope == "":
		return "", errors.New("idempotency: scope required")
	case key == "":
		return "", errors.New("idempotency: key required")
	}
	return "idempotency:" + scope + ":" + key, nil
}
