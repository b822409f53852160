// Package testutil provides deterministic helpers for tests.
package testutil

import "sync"

// FixedTokenGenerator returns predetermined run tokens in order, enabling
// deterministic report output and golden-file comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedTokenGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokenGenerator creates a generator that returns tokens in order
// and panics when they are exhausted, so a test cannot silently consume
// more runs than it declared.
func NewFixedTokenGenerator(tokens ...string) *FixedTokenGenerator {
	return &FixedTokenGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("testutil: all fixed tokens exhausted")
	}
	tok := g.tokens[g.idx]
	g.idx++
	return tok
}
