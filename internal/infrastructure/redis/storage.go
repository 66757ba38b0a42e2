package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
)

const sessionKeyPrefix = "session:"

// SessionStorage persists session blobs in Redis, one key per session with
// a sliding TTL. Implements the session.Storage port.
type SessionStorage struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStorage(client *redis.Client, ttl time.Duration) *SessionStorage {
	return &SessionStorage{client: client, ttl: ttl}
}

func (s *SessionStorage) Load(ctx context.Context, id string) ([]byte, error) {
	blob, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return blob, nil
}

func (s *SessionStorage) Save(ctx context.Context, id string, blob []byte) error {
	// Every save refreshes the TTL, so a session stays alive as long as it
	// is being used.
	if err := s.client.Set(ctx, sessionKeyPrefix+id, blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (s *SessionStorage) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
