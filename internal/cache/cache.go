// Package cache is the process-local read-through cache in front of the
// article queries. Entries expire lazily: freshness is checked on read and a
// stale entry is deleted by the read that finds it. Nothing sweeps in the
// background, so the map grows with the set of distinct keys until Close or
// Purge.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL keeps listings fresh enough for a news front page.
const DefaultTTL = 30 * time.Second

// Clock returns the current time.
type Clock func() time.Time

type entry struct {
	value  any
	stored time.Time
}

// Store is safe for concurrent use. Concurrent Sets of the same key are
// last-write-wins.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     Clock
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now Clock) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the value stored under key if it is younger than the TTL.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.stored) >= s.ttl {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, stamped with the current time. It is a no-op
// after Close.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.entries[key] = entry{value: value, stored: s.now()}
}

// Len counts entries, fresh or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Purge drops every entry and returns how many there were.
func (s *Store) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = make(map[string]entry)
	return n
}

// Close empties the store and disables further writes.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]entry)
	s.closed = true
}

// Lookup is Get with a type assertion. A value of another type counts as a
// miss.
func Lookup[T any](s *Store, key string) (T, bool) {
	v, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
