package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-tracker/internal/weather"
)

var (
	// ErrNotFound is returned when no tracker exists for an id.
	ErrNotFound = errors.New("tracker not found")
)

// MemoryStore is a concurrency-safe in-memory registry of tracker sessions.
type MemoryStore struct {
	mu sync.RWMutex

	// key: tracker id
	data map[string]*weather.Tracker

	// retention configuration
	maxSessions int           // max number of trackers kept
	maxAge      time.Duration // trackers idle longer than this are pruned
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// Limits <= 0 are treated as unlimited.
func NewMemoryStore(maxSessions int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:        make(map[string]*weather.Tracker),
		maxSessions: maxSessions,
		maxAge:      maxAge,
	}
}

// Save registers a tracker, evicting the least recently seen trackers when
// the count limit is exceeded.
func (s *MemoryStore) Save(t *weather.Tracker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[t.ID()] = t

	if s.maxSessions > 0 && len(s.data) > s.maxSessions {
		for _, id := range s.oldestLocked(len(s.data)-s.maxSessions, t.ID()) {
			delete(s.data, id)
		}
	}
}

// Get returns the tracker for id and marks it as used.
func (s *MemoryStore) Get(id string) (*weather.Tracker, error) {
	s.mu.RLock()
	t, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	t.Touch()
	return t, nil
}

// Delete removes a tracker.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// Len returns the number of trackers held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Prune removes trackers idle since before now-maxAge and returns how many
// were removed.
func (s *MemoryStore) Prune(now time.Time) int {
	if s.maxAge <= 0 {
		return 0
	}
	cutoff := now.Add(-s.maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, t := range s.data {
		if t.LastSeen().Before(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) oldestLocked(n int, keep string) []string {
	type entry struct {
		id   string
		seen time.Time
	}
	entries := make([]entry, 0, len(s.data))
	for id, t := range s.data {
		if id == keep {
			continue
		}
		entries = append(entries, entry{id: id, seen: t.LastSeen()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seen.Before(entries[j].seen) })

	ids := make([]string, 0, n)
	for i := 0; i < n && i < len(entries); i++ {
		ids = append(ids, entries[i].id)
	}
	return ids
}
