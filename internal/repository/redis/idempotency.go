package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const idemNS = ns + ":idem"

func KeyIdemHold(sessionID int64, idemKey string) string {
	return fmt.Sprintf("%s:holds:%d:%s", idemNS, sessionID, idemKey)
}

func KeyIdemPayment(holdID string, idemKey string) string {
	return fmt.Sprintf("%s:payments:%s:%s", idemNS, holdID, idemKey)
}

const (
	lockValue    = "LOCK"
	resultPrefix = "RES:"
)

// IdemState is the outcome of claiming an idempotency key.
type IdemState int

const (
	// IdemAcquired means the caller owns the key and must Complete or Release it.
	IdemAcquired IdemState = iota
	// IdemReplay means a previous request finished; its response is returned.
	IdemReplay
	// IdemInFlight means another request holds the key right now.
	IdemInFlight
)

// IdempotencyStore remembers responses of state-changing requests so a
// retried request with the same key gets the first response back instead
// of repeating the side effect.
type IdempotencyStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl, lockTTL time.Duration) *IdempotencyStore {
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

// Begin claims key. On IdemReplay the stored payload is returned.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) (IdemState, string, error) {
	const op = "redis.IdempotencyStore.Begin"

	if payload, ok, err := s.result(ctx, key); err != nil {
		return 0, "", fmt.Errorf("%s:%w", op, err)
	} else if ok {
		return IdemReplay, payload, nil
	}

	locked, err := s.rdb.SetNX(ctx, key, lockValue, s.lockTTL).Result()
	if err != nil {
		return 0, "", fmt.Errorf("%s:%w", op, err)
	}
	if locked {
		return IdemAcquired, "", nil
	}

	// lost the race; the winner may have finished in between
	if payload, ok, err := s.result(ctx, key); err != nil {
		return 0, "", fmt.Errorf("%s:%w", op, err)
	} else if ok {
		return IdemReplay, payload, nil
	}

	return IdemInFlight, "", nil
}

// Complete stores the response for key, replacing the lock.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, jsonPayload string) error {
	return s.rdb.Set(ctx, key, resultPrefix+jsonPayload, s.ttl).Err()
}

// Release drops the lock so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *IdempotencyStore) result(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if strings.HasPrefix(v, resultPrefix) {
		return strings.TrimPrefix(v, resultPrefix), true, nil
	}

	return "", false, nil
}
