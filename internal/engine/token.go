package engine

import "github.com/google/uuid"

// TokenGenerator generates unique run tokens for RunReport correlation.
// Implemented by UUIDv7Generator (production) and by the deterministic
// generator in internal/testutil (tests, golden output).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run tokens, so persisted
// runs sort by creation time.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string. Panics if UUID
// generation fails, which does not happen in practice.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
