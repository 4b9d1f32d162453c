package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/burner/core"
	"github.com/layer-3/burner/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis store. Keys expire ttl after the last save;
// a zero ttl keeps them forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) ports.Store {
	return &RedisStore{
		client: client,
		prefix: "burner:accounts:",
		ttl:    ttl,
	}
}

// LoadAccounts returns the account set of a session
func (s *RedisStore) LoadAccounts(ctx context.Context, sessionID string) (*core.AccountSet, error) {
	data, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.NewAccountSet(), nil
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	return decodeAccountSet(data)
}

// SaveAccounts replaces the account set of a session
func (s *RedisStore) SaveAccounts(ctx context.Context, sessionID string, set *core.AccountSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	return nil
}

// DeleteAccounts forgets the account set of a session
func (s *RedisStore) DeleteAccounts(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.prefix+sessionID).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}
