package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// WatchRecord remembers an evaluated expression across sessions
type WatchRecord struct {
	Expression  string    `json:"expression"`
	LastValue   string    `json:"last_value"`
	Evaluations int       `json:"evaluations"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

type watchesFile struct {
	Version int                     `json:"version"`
	Watches map[string]*WatchRecord `json:"watches"`
}

// WatchStore persists evaluated expressions and their last values
type WatchStore struct {
	mu      sync.RWMutex
	path    string
	watches map[string]*WatchRecord
	now     func() time.Time
}

// DefaultWatchesPath returns ~/.termdbg/watches.json
func DefaultWatchesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".termdbg", "watches.json")
	}
	return filepath.Join(home, ".termdbg", "watches.json")
}

// NewWatchStore creates a store backed by path and loads it. An empty
// path selects DefaultWatchesPath.
func NewWatchStore(path string) *WatchStore {
	if path == "" {
		path = DefaultWatchesPath()
	}
	s := &WatchStore{
		path:    path,
		watches: make(map[string]*WatchRecord),
		now:     time.Now,
	}
	_ = s.Load()
	return s
}

// Path returns the backing file
func (s *WatchStore) Path() string { return s.path }

// Record stores a resolved value and reports whether the expression is new
func (s *WatchStore) Record(expr, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.watches[expr]
	if !ok {
		w = &WatchRecord{Expression: expr, FirstSeen: now}
		s.watches[expr] = w
	}
	w.LastValue = value
	w.Evaluations++
	w.LastSeen = now
	return !ok
}

// Get returns a copy of the record for expr, or nil
func (s *WatchStore) Get(expr string) *WatchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.watches[expr]
	if !ok {
		return nil
	}
	cp := *w
	return &cp
}

// IsKnown reports whether expr was evaluated before
func (s *WatchStore) IsKnown(expr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.watches[expr]
	return ok
}

// All returns every record, most recently seen first
func (s *WatchStore) All() []WatchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WatchRecord, 0, len(s.watches))
	for _, w := range s.watches {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].Expression < out[j].Expression
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out
}

// Count returns the number of stored expressions
func (s *WatchStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watches)
}

// Clear forgets every expression
func (s *WatchStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watches = make(map[string]*WatchRecord)
}

// Load reads the backing file. A missing file is not an error.
func (s *WatchStore) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read watches: %w", err)
	}

	var file watchesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse watches: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if file.Watches != nil {
		s.watches = file.Watches
	}
	return nil
}

// Save writes the store to its backing file
func (s *WatchStore) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(watchesFile{Version: 1, Watches: s.watches}, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create watches dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write watches: %w", err)
	}
	return os.Rename(tmp, s.path)
}
