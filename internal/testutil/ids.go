package testutil

import (
	"fmt"
	"sync"
)

// IDSequence issues "prefix-0001" style ids in order. Safe for
// concurrent use.
type IDSequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewIDSequence creates a sequence with the given prefix.
func NewIDSequence(prefix string) *IDSequence {
	return &IDSequence{prefix: prefix}
}

// Next returns the next id in the sequence.
func (s *IDSequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%04d", s.prefix, s.n)
}

// Reset rewinds the sequence.
func (s *IDSequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}
