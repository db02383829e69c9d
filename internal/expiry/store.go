// Package expiry is a time-indexed keyed store with explicit per-entry
// expiry. It replaces process-local "seen" sets and OTP maps with a single
// abstraction that sweeps stale entries in the background.
package expiry

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	deadline time.Time
}

// Store holds keyed values until their deadline passes.
type Store[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	done    chan struct{}
	once    sync.Once
}

// NewStore starts a store whose sweeper runs at the given interval.
func NewStore[V any](sweepInterval time.Duration) *Store[V] {
	s := &Store[V]{
		entries: make(map[string]entry[V]),
		done:    make(chan struct{}),
	}
	go s.sweep(sweepInterval)
	return s
}

// Put stores value under key until now+ttl, replacing any existing entry.
func (s *Store[V]) Put(key string, value V, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{value: value, deadline: time.Now().Add(ttl)}
}

// PutIfAbsent stores value only when no live entry exists for key. It
// returns false when a live entry was already present.
func (s *Store[V]) PutIfAbsent(key string, value V, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && time.Now().Before(e.deadline) {
		return false
	}
	s.entries[key] = entry[V]{value: value, deadline: time.Now().Add(ttl)}
	return true
}

// Get returns the live value for key.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || time.Now().After(e.deadline) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Delete removes key immediately.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len counts live entries.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n := 0
	for _, e := range s.entries {
		if now.Before(e.deadline) {
			n++
		}
	}
	return n
}

// Close stops the sweeper.
func (s *Store[V]) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Store[V]) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, e := range s.entries {
				if now.After(e.deadline) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
