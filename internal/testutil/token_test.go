package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedTokenGenerator_Order(t *testing.T) {
	g := NewFixedTokenGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
}

func TestFixedTokenGenerator_PanicsWhenExhausted(t *testing.T) {
	g := NewFixedTokenGenerator("only")
	g.Generate()
	assert.Panics(t, func() { g.Generate() })
}
