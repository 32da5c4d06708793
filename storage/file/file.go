// Package file persists the quota document as a JSON file at a well-known
// path. This is the deployment default: the collector runs as a periodic
// batch job on a single host and the file survives between runs.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agromonitor/copernicus/pkg/quota"
)

// Store implements quota.Store on a single JSON file.
type Store struct {
	path  string
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

// New creates a file-backed store at path. The file is created lazily on
// first save.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:  path,
		nowFn: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements quota.Store. A missing file is not an error; it returns
// (nil, nil) so the governor can initialize default state.
func (s *Store) Load(ctx context.Context) (*quota.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading quota file: %w", err)
	}

	var st quota.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing quota file %s: %w", s.path, err)
	}
	return &st, nil
}

// Save implements quota.Store. The document is written to a temporary file
// in the same directory and renamed into place, so a crash mid-write leaves
// the previous valid copy intact and a concurrent reader never observes a
// partial document.
func (s *Store) Save(ctx context.Context, st *quota.State) error {
	if st == nil {
		return fmt.Errorf("nil quota state")
	}

	stamped := *st
	stamped.LastUpdated = s.nowFn().UTC()

	data, err := json.MarshalIndent(&stamped, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding quota state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating quota directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".quota-*.json")
	if err != nil {
		return fmt.Errorf("creating temp quota file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp quota file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp quota file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting quota file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing quota file: %w", err)
	}

	// Caller keeps its copy in sync with what was persisted.
	st.LastUpdated = stamped.LastUpdated
	return nil
}
