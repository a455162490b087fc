// Package cache persists the last tracker snapshot so a display has
// something to draw before the first sync completes.
package cache

import (
	"os"
	"path/filepath"
	"time"

	json "github.com/json-iterator/go"
	"github.com/workforce/tracker/pkg/tracker"
)

// DefaultMaxAge bounds how old a cached snapshot may be and still be used
const DefaultMaxAge = 12 * time.Hour

type entry struct {
	UserID   string           `json:"user_id"`
	Snapshot tracker.Snapshot `json:"snapshot"`
}

// Store reads and writes a single snapshot file
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Save writes snap for userID, replacing any previous entry
func (s *Store) Save(userID string, snap tracker.Snapshot) error {
	if s == nil || s.path == "" {
		return nil
	}
	data, err := json.Marshal(entry{UserID: userID, Snapshot: snap})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load returns the cached snapshot for userID. ok is false when there is
// no entry, it belongs to another user or it was taken more than maxAge
// before now.
func (s *Store) Load(userID string, now time.Time, maxAge time.Duration) (snap tracker.Snapshot, ok bool, err error) {
	if s == nil || s.path == "" {
		return snap, false, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, false, nil
		}
		return snap, false, err
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		// a corrupt cache is discarded, never fatal
		return snap, false, nil
	}
	if e.UserID != userID || e.Snapshot.At.IsZero() || now.Sub(e.Snapshot.At) > maxAge {
		return snap, false, nil
	}
	return e.Snapshot, true, nil
}

// Clear removes the cache file
func (s *Store) Clear() error {
	if s == nil || s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
