package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
)

// Lua script for safe lock release (only owner can release)
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// ReferenceLocker hands out short-lived locks keyed by payment reference so
// that only one reconciler instance works a given pending transaction at a
// time.
type ReferenceLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReferenceLocker(client *redis.Client, ttl time.Duration) *ReferenceLocker {
	return &ReferenceLocker{client: client, ttl: ttl}
}

// Lock acquires the lock for a reference and returns its release function.
// It does not retry: a held lock means another instance is already
// reconciling this reference, so the caller should just skip it this sweep.
// Release is owner-checked, so a lock that expired and was re-acquired
// elsewhere is never deleted by its old holder.
func (l *ReferenceLocker) Lock(ctx context.Context, reference string) (func(context.Context) error, error) {
	key := fmt.Sprintf("lock:reconcile:%s", reference)
	value := uuid.New().String()

	acquired, err := l.client.SetNX(ctx, key, value, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", reference, err)
	}
	if !acquired {
		return nil, domainErrors.ErrLockAcquisitionFailed
	}

	release := func(ctx context.Context) error {
		result, err := releaseLockScript.Run(ctx, l.client, []string{key}, value).Result()
		if err != nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		if val, ok := result.(int64); !ok || val == 0 {
			return fmt.Errorf("lock %s not held or already released", key)
		}
		return nil
	}
	return release, nil
}
