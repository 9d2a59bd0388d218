// Package cache persists per-descriptor state across walk passes: the HTTP
// cache validators plus the prior pass's trust result and findings.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/advisorystack/csaf-walker/internal/validate"
	"github.com/advisorystack/csaf-walker/internal/verify"
)

const (
	// StoreFileName is the name of the cache data file
	StoreFileName = "walker-cache.json"

	// lockFileName guards the store against concurrent walker processes
	lockFileName = "walker-cache.lock"
)

// Entry is the persisted state for one descriptor URL.
type Entry struct {
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"lastModified,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Trust and Findings are the prior pass's results, reused when the
	// server answers a conditional GET with 304.
	Trust    *verify.TrustResult `json:"trust,omitempty"`
	Findings []validate.Finding  `json:"findings,omitempty"`

	// ConfigFingerprint records the trust and rule configuration the results
	// were produced under. A changed fingerprint invalidates the entry's
	// validators so the document is fetched and re-checked from scratch.
	ConfigFingerprint string `json:"configFingerprint,omitempty"`
}

// Store is the key-value interface the coordinator reads before and writes
// after each descriptor's pipeline. Keys are descriptor URLs; writes are
// last-writer-wins, which is safe because each descriptor owns its key.
type Store interface {
	// Get returns the entry for a descriptor URL, if present.
	Get(url string) (*Entry, bool)

	// Put records the entry for a descriptor URL.
	Put(url string, entry *Entry)

	// Commit persists the store. Called once at pass end.
	Commit() error

	// Close releases the store's resources.
	Close() error
}

// fileStore implements Store on a JSON file guarded by a file lock.
type fileStore struct {
	path string
	lock *flock.Flock

	mu      sync.RWMutex
	entries map[string]*Entry
}

// OpenFileStore opens (or creates) the cache store under dir, taking an
// exclusive file lock so concurrent walker processes cannot corrupt it.
func OpenFileStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock cache store: %w", err)
	}

	s := &fileStore{
		path:    filepath.Join(dir, StoreFileName),
		lock:    lock,
		entries: make(map[string]*Entry),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to read cache store: %w", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to parse cache store: %w", err)
	}
	return s, nil
}

// Get returns the entry for a descriptor URL, if present.
func (s *fileStore) Get(url string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[url]
	return entry, ok
}

// Put records the entry for a descriptor URL.
func (s *fileStore) Put(url string, entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[url] = entry
}

// Commit writes the store atomically: temporary file first, then rename.
func (s *fileStore) Commit() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.entries, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal cache store: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary cache file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}

// Close releases the file lock.
func (s *fileStore) Close() error {
	return s.lock.Unlock()
}

// nopStore is the Store used when caching is disabled.
type nopStore struct{}

// NewNopStore returns a store that remembers nothing. Every pass then
// fetches every document unconditionally.
func NewNopStore() Store {
	return nopStore{}
}

func (nopStore) Get(string) (*Entry, bool) { return nil, false }
func (nopStore) Put(string, *Entry)        {}
func (nopStore) Commit() error             { return nil }
func (nopStore) Close() error              { return nil }
