// Package cache holds short-lived, per-user rollups in memory.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Store is an in-memory TTL cache. Expired entries are dropped on read.
// Every key carries a generation that invalidation bumps, so a value computed
// before an invalidation can be refused with SetIfCurrent.
// Safe for concurrent use.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	gens    map[string]uint64
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Store.
type Option[V any] func(*Store[V])

// WithClock replaces time.Now.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(s *Store[V]) { s.now = now }
}

// New returns a store whose entries live for ttl. A non-positive ttl uses the
// default.
func New[V any](ttl time.Duration, opts ...Option[V]) *Store[V] {
	if ttl <= 0 {
		ttl = DefaultTTLSeconds * time.Second
	}
	s := &Store[V]{
		entries: make(map[string]entry[V]),
		gens:    make(map[string]uint64),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the entry lifetime.
func (s *Store[V]) TTL() time.Duration { return s.ttl }

// Get returns the cached value for key if it has not expired.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, still := s.entries[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores v under key for one TTL.
func (s *Store[V]) Set(key string, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{value: v, expiresAt: s.now().Add(s.ttl)}
}

// Generation returns key's current generation. Read it before loading the
// value that will be passed to SetIfCurrent.
func (s *Store[V]) Generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gens[key]
	if !ok {
		s.gens[key] = 0
	}
	return g
}

// SetIfCurrent stores v unless key was invalidated since gen was read.
func (s *Store[V]) SetIfCurrent(key string, v V, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[key] != gen {
		return false
	}
	s.entries[key] = entry[V]{value: v, expiresAt: s.now().Add(s.ttl)}
	return true
}

// Invalidate drops key.
func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	s.gens[key]++
}

// InvalidatePrefix drops every key starting with prefix and returns how many
// entries were removed.
func (s *Store[V]) InvalidatePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
			n++
		}
	}
	for k := range s.gens {
		if strings.HasPrefix(k, prefix) {
			s.gens[k]++
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
