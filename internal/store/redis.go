package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultNamespace = "hd"

// RedisOption is a functional option for configuring the Redis store.
type RedisOption func(*redisStore)

// WithNamespace sets the key namespace prefix for Redis keys.
func WithNamespace(ns string) RedisOption {
	return func(s *redisStore) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// redisStore implements Store using Redis as the backing. Records are
// stored as JSON values; a set tracks which members hold credentials so
// CredentialHolders doesn't need a SCAN.
type redisStore struct {
	client    *redis.Client
	namespace string
	closed    atomic.Bool
}

// NewRedisStore creates a Redis-backed store. redisURL should be a valid
// Redis URL (e.g., "redis://localhost:6379/0"). Returns an error if the
// connection cannot be established.
func NewRedisStore(redisURL string, opts ...RedisOption) (Store, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(redisOpts)

	s := &redisStore{
		client:    client,
		namespace: defaultNamespace,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Verify connectivity
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return s, nil
}

func (s *redisStore) availKey(memberID string) string {
	return s.namespace + ":avail:" + memberID
}

func (s *redisStore) credKey(memberID string) string {
	return s.namespace + ":cred:" + memberID
}

func (s *redisStore) credIndexKey() string {
	return s.namespace + ":cred:index"
}

func (s *redisStore) GetAvailability(ctx context.Context, memberID string) (AvailabilityRecord, error) {
	if s.closed.Load() {
		return AvailabilityRecord{}, fmt.Errorf("store is closed")
	}

	data, err := s.client.Get(ctx, s.availKey(memberID)).Bytes()
	if err == redis.Nil {
		return AvailabilityRecord{}, nil
	}
	if err != nil {
		return AvailabilityRecord{}, fmt.Errorf("getting availability: %w", err)
	}

	var rec AvailabilityRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return AvailabilityRecord{}, fmt.Errorf("unmarshaling availability: %w", err)
	}
	return rec, nil
}

func (s *redisStore) SetAvailability(ctx context.Context, memberID string, rec AvailabilityRecord) error {
	if s.closed.Load() {
		return fmt.Errorf("store is closed")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling availability: %w", err)
	}
	if err := s.client.Set(ctx, s.availKey(memberID), data, 0).Err(); err != nil {
		return fmt.Errorf("setting availability: %w", err)
	}
	return nil
}

func (s *redisStore) GetCredential(ctx context.Context, memberID string) (*CredentialRecord, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("store is closed")
	}

	data, err := s.client.Get(ctx, s.credKey(memberID)).Bytes()
	if err == redis.Nil {
		// Not found - also clean up the index if it has a stale entry
		s.client.SRem(ctx, s.credIndexKey(), memberID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential: %w", err)
	}

	var rec CredentialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling credential: %w", err)
	}
	return &rec, nil
}

func (s *redisStore) SetCredential(ctx context.Context, memberID string, rec CredentialRecord) error {
	if s.closed.Load() {
		return fmt.Errorf("store is closed")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling credential: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.credKey(memberID), data, 0)
	pipe.SAdd(ctx, s.credIndexKey(), memberID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("setting credential: %w", err)
	}
	return nil
}

func (s *redisStore) CredentialHolders(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("store is closed")
	}

	ids, err := s.client.SMembers(ctx, s.credIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing credential index: %w", err)
	}
	return ids, nil
}

// Close releases Redis resources.
func (s *redisStore) Close() error {
	s.closed.Store(true)
	return s.client.Close()
}
