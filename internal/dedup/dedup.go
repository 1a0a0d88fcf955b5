// Package dedup tracks identifiers that have already been reported.
package dedup

import "sync"

// Set remembers every identifier it has been asked about. It never evicts,
// so an identifier reported once is never reported as new again.
type Set struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New returns an empty Set.
func New() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// IsNew reports whether id has not been seen before and records it.
// The check and the insert happen under one lock.
func (s *Set) IsNew(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// Len returns the number of recorded identifiers.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
