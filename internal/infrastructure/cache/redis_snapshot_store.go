package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gamestore/storefront/internal/domain/cart"
)

const defaultSnapshotPrefix = "storefront:cart:"

// RedisSnapshotStore keeps cart snapshots in Redis so every storefront
// instance renders the same snapshot for a session.
type RedisSnapshotStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSnapshotStore creates a store on an existing client.
// The caller keeps ownership of the client.
func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSnapshotStore{
		client:    client,
		keyPrefix: defaultSnapshotPrefix,
		ttl:       ttl,
	}
}

func (s *RedisSnapshotStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

// Get returns the stored snapshot of a session
func (s *RedisSnapshotStore) Get(ctx context.Context, sessionID string) (cart.Snapshot, bool, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.Snapshot{}, false, nil
	}
	if err != nil {
		return cart.Snapshot{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var snap cart.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return cart.Snapshot{}, false, fmt.Errorf("unmarshal snapshot failed: %w", err)
	}
	return snap, true, nil
}

// Set replaces the stored snapshot of a session
func (s *RedisSnapshotStore) Set(ctx context.Context, sessionID string, snap cart.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes the stored snapshot of a session
func (s *RedisSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Close releases nothing: the client belongs to the caller
func (s *RedisSnapshotStore) Close() error {
	return nil
}

var _ cart.SnapshotStore = (*RedisSnapshotStore)(nil)
