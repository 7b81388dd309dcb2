// Package redis persists learner records in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/practicum/internal/storage"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "practicum:"

// KVStore implements storage.KV using Redis strings
type KVStore struct {
	client *redis.Client
}

var _ storage.KV = (*KVStore)(nil)

// NewKVStore creates a new Redis key-value store
func NewKVStore(client *redis.Client) *KVStore {
	return &KVStore{client: client}
}

// Connect creates a client for addr and verifies it answers PING
func Connect(ctx context.Context, addr, password string, db int) (*KVStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewKVStore(client), nil
}

// Get retrieves the value stored under key
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key without expiry
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key
func (s *KVStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client
func (s *KVStore) Close() error {
	return s.client.Close()
}
