package cache

import (
	"sync"
	"time"
)

// entry holds a cached value with its absolute expiry time.
type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Store is an in-memory TTL cache owned by a single component. Entries
// leave only by expiry or explicit clear, never by size pressure. Expired
// entries are dropped on access and by the background sweeper; a stale
// value is never returned.
type Store struct {
	name    string
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewStore creates an empty store. The name identifies the store in status
// reports and sweep logs.
func NewStore(name string) *Store {
	return NewStoreWithClock(name, time.Now)
}

// NewStoreWithClock creates a store with a custom time source. Tests use
// this to step time across TTL boundaries without sleeping.
func NewStoreWithClock(name string, now func() time.Time) *Store {
	return &Store{
		name:    name,
		entries: make(map[string]entry),
		now:     now,
	}
}

// Name returns the store's identifier.
func (s *Store) Name() string {
	return s.name
}

// Get returns the live value for key. An entry at or past its expiry is
// removed and reported as a miss.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		// Re-check: the slot may have been rewritten since the read.
		if current, ok := s.entries[key]; ok && current.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores a value that expires ttl from now.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
}

// Delete removes a single entry.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Size returns the number of live (unexpired) entries.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	count := 0
	for _, e := range s.entries {
		if now.Before(e.expiresAt) {
			count++
		}
	}
	return count
}

// Clear removes every entry and returns how many were dropped.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := len(s.entries)
	s.entries = make(map[string]entry)
	return dropped
}

// PurgeExpired removes entries at or past their expiry and returns how
// many were dropped. Called by the background sweeper.
func (s *Store) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	dropped := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			dropped++
		}
	}
	return dropped
}
