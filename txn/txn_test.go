package txn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratorMonotonic(t *testing.T) {
	g := NewGenerator()
	first := g.Next()
	second := g.Next()
	require.Less(t, first, second)
}

func TestContextIsPlainValue(t *testing.T) {
	c := Context{ID: 7, ReadTS: 42}
	require.Equal(t, uint64(7), c.ID)
	require.Equal(t, uint64(42), c.ReadTS)
}
