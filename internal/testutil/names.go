// Package testutil provides deterministic helpers for tests.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialNameGenerator returns "<prefix>-1", "<prefix>-2", ... so that
// in-memory database names are reproducible across runs.
//
// Names must stay distinct: two in-memory sessions given the same name would
// share one database.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialNameGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialNameGenerator creates a generator. An empty prefix defaults to "mem".
func NewSequentialNameGenerator(prefix string) *SequentialNameGenerator {
	if prefix == "" {
		prefix = "mem"
	}
	return &SequentialNameGenerator{prefix: prefix}
}

// Generate returns the next name.
func (g *SequentialNameGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence. The next Generate returns "<prefix>-1".
func (g *SequentialNameGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
