// Package redis provides the distributed lock that serializes
// verification attempts for a single custom domain. A coach
// double-clicking "verify" must not run two overlapping attempts with
// interleaved status writes.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type LockStore struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*LockStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &LockStore{client: client}, nil
}

func (s *LockStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("redis.LockStore.Close: %w", err)
	}
	return nil
}

// AcquireVerifyLock takes the per-domain verification lock. Returns
// false when another attempt holds it. The TTL bounds how long a
// crashed attempt can block later ones.
func (s *LockStore) AcquireVerifyLock(ctx context.Context, domainID uuid.UUID, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, verifyLockKey(domainID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis.AcquireVerifyLock: %w", err)
	}
	return ok, nil
}

// ReleaseVerifyLock drops the per-domain verification lock. Safe to
// call when the lock already expired.
func (s *LockStore) ReleaseVerifyLock(ctx context.Context, domainID uuid.UUID) error {
	if err := s.client.Del(ctx, verifyLockKey(domainID)).Err(); err != nil {
		return fmt.Errorf("redis.ReleaseVerifyLock: %w", err)
	}
	return nil
}

func verifyLockKey(domainID uuid.UUID) string {
	return "companion:verify-lock:" + domainID.String()
}
