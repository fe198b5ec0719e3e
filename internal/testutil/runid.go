package testutil

import (
	"fmt"
	"sync"
)

// SequenceRunIDGenerator generates run IDs of the form "<prefix>-<n>".
//
// This enables deterministic test execution and golden snapshot comparison:
// the same scenario run through a fresh generator produces the same run IDs.
//
// Thread-safety: SequenceRunIDGenerator is safe for concurrent use.
type SequenceRunIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceRunIDGenerator creates a generator whose first ID is
// "<prefix>-1". If prefix is empty, "test-run" is used.
func NewSequenceRunIDGenerator(prefix string) *SequenceRunIDGenerator {
	if prefix == "" {
		prefix = "test-run"
	}
	return &SequenceRunIDGenerator{prefix: prefix}
}

// Generate returns the next run ID.
//
// Implements engine.RunIDGenerator.
func (g *SequenceRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequenceRunIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
