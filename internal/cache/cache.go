package cache

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultSweepInterval = 10 * time.Minute

type entry struct {
	value     json.RawMessage
	expiresAt time.Time
	storedAt  time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Stats counters are monotonic since store construction. Keys is the current
// physical key count, expired entries included until the sweep removes them.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Keys    int    `json:"keys"`
	Expired uint64 `json:"expired"`
}

// Store is a process-local TTL key-value map. Stored values are treated as
// immutable after Set; callers must not mutate them. Concurrent Set on the
// same key is last write wins.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry

	hits    atomic.Uint64
	misses  atomic.Uint64
	sets    atomic.Uint64
	expired atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
}

func NewStore(sweepInterval time.Duration) *Store {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	s := &Store{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
	go s.sweepLoop(sweepInterval)
	return s
}

// Get returns the stored value only if present and unexpired. An expired
// entry behaves as absent; its physical removal happens here or in the sweep,
// whichever runs first.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	if s == nil {
		return nil, false
	}
	now := time.Now()
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	if e.expired(now) {
		s.mu.Lock()
		if current, exists := s.entries[key]; exists && current.storedAt.Equal(e.storedAt) {
			delete(s.entries, key)
			s.expired.Add(1)
		}
		s.mu.Unlock()
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return e.value, true
}

func (s *Store) Set(key string, value json.RawMessage, ttl time.Duration) {
	if s == nil {
		return
	}
	now := time.Now()
	e := entry{value: value, storedAt: now}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	s.sets.Add(1)
}

// Delete removes the given keys and reports how many were actually present.
func (s *Store) Delete(keys ...string) int {
	if s == nil || len(keys) == 0 {
		return 0
	}
	removed := 0
	s.mu.Lock()
	for _, key := range keys {
		if _, ok := s.entries[key]; ok {
			delete(s.entries, key)
			removed++
		}
	}
	s.mu.Unlock()
	return removed
}

// Keys enumerates all physically present key names, expired or not. Callers
// filter by prefix or suffix themselves.
func (s *Store) Keys() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	return keys
}

func (s *Store) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	s.mu.RLock()
	keyCount := len(s.entries)
	s.mu.RUnlock()
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Sets:    s.sets.Load(),
		Keys:    keyCount,
		Expired: s.expired.Load(),
	}
}

// Close stops the sweep goroutine. Safe to call more than once.
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *Store) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(time.Now())
		case <-s.stop:
			return
		}
	}
}

func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			s.expired.Add(1)
		}
	}
	s.mu.Unlock()
}
