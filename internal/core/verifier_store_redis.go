package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const verifierKeyPrefix = "fitness:verifier:"

// RedisVerifierStore backs the VerifierStore with Redis so any API instance
// can consume a callback. GETDEL makes the read-then-clear atomic and the
// key TTL enforces the verifier expiry.
type RedisVerifierStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisVerifierStore(client *redis.Client, ttl time.Duration) *RedisVerifierStore {
	return &RedisVerifierStore{client: client, ttl: ttl}
}

func (s *RedisVerifierStore) Store(ctx context.Context, state string, pending PendingAuthorization) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending authorization: %w", err)
	}

	if err := s.client.Set(ctx, verifierKeyPrefix+state, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store verifier: %w", err)
	}
	return nil
}

func (s *RedisVerifierStore) RetrieveAndClear(ctx context.Context, state string) (PendingAuthorization, bool, error) {
	data, err := s.client.GetDel(ctx, verifierKeyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return PendingAuthorization{}, false, nil
	}
	if err != nil {
		return PendingAuthorization{}, false, fmt.Errorf("retrieve verifier: %w", err)
	}

	var pending PendingAuthorization
	if err := json.Unmarshal(data, &pending); err != nil {
		return PendingAuthorization{}, false, fmt.Errorf("unmarshal pending authorization: %w", err)
	}
	return pending, true, nil
}
