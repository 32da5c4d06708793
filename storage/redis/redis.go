// Package redis persists the quota document as a single JSON value in
// Redis. Useful when the collector runs from ephemeral containers and the
// local filesystem does not survive between runs.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agromonitor/copernicus/pkg/quota"
)

// DefaultKey is the Redis key used when none is configured.
const DefaultKey = "copernicus:quota"

// Store implements quota.Store on a Redis string key.
type Store struct {
	client redis.UniversalClient
	key    string
	nowFn  func() time.Time
}

// Option configures the store.
type Option func(*Store)

// WithKey overrides the Redis key holding the document.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// WithNowFunc overrides the clock used to stamp LastUpdated. For tests.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFn = now
	}
}

// New creates a Redis-backed store.
func New(client redis.UniversalClient, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("nil redis client")
	}
	s := &Store{
		client: client,
		key:    DefaultKey,
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load implements quota.Store. A missing key returns (nil, nil).
func (s *Store) Load(ctx context.Context) (*quota.State, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("reading quota key %s: %w", s.key, err)
	}

	var st quota.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing quota key %s: %w", s.key, err)
	}
	return &st, nil
}

// Save implements quota.Store. SET replaces the value atomically, so a
// concurrent reader sees either the old or the new document.
func (s *Store) Save(ctx context.Context, st *quota.State) error {
	if st == nil {
		return fmt.Errorf("nil quota state")
	}

	st.LastUpdated = s.nowFn().UTC()
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding quota state: %w", err)
	}

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("writing quota key %s: %w", s.key, err)
	}
	return nil
}
