// Package memory provides an in-memory implementation of the quota.Store
// interface. This implementation is primarily intended for testing and
// development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agromonitor/copernicus/pkg/quota"
)

// Store implements quota.Store with a mutex-guarded copy of the document.
type Store struct {
	mu    sync.RWMutex
	state *quota.State
	nowFn func() time.Time
}

// Option configures the store.
type Option func(*Store)

// WithNowFunc overrides the clock used to stamp LastUpdated. For tests.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFn = now
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	s := &Store{nowFn: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements quota.Store.
func (s *Store) Load(ctx context.Context) (*quota.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil, nil
	}

	// Return a copy to prevent external mutations
	stCopy := *s.state
	return &stCopy, nil
}

// Save implements quota.Store.
func (s *Store) Save(ctx context.Context, st *quota.State) error {
	if st == nil {
		return fmt.Errorf("nil quota state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st.LastUpdated = s.nowFn().UTC()

	// Store a copy to prevent external mutations
	stCopy := *st
	s.state = &stCopy
	return nil
}

// Clear removes the stored document (useful for testing).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = nil
}
