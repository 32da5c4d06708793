package quota

import (
	"context"
	"time"
)

// Store persists the quota document. Implementations replace the document as
// a whole; a concurrent reader must never observe a partially written copy.
type Store interface {
	// Load returns the persisted state, or (nil, nil) when none exists yet.
	Load(ctx context.Context) (*State, error)

	// Save replaces the persisted state. Implementations stamp LastUpdated
	// before writing.
	Save(ctx context.Context, st *State) error
}

// Clock supplies the wall clock used for month rollover and the daily
// counter. Injected so temporal behavior is testable.
type Clock interface {
	Now() time.Time
}

// systemClock is the default Clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
