package expander

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(it *productIter) [][]any {
	var combos [][]any
	for {
		combo, ok := it.next()
		if !ok {
			return combos
		}
		combos = append(combos, combo)
	}
}

func TestProductIter(t *testing.T) {
	combos := drain(newProductIter([][]any{{"a", "b"}, {1, 2, 3}}))
	require.Len(t, combos, 6)
	assert.Equal(t, []any{"a", 1}, combos[0])
	assert.Equal(t, []any{"a", 3}, combos[2])
	assert.Equal(t, []any{"b", 1}, combos[3])
	assert.Equal(t, []any{"b", 3}, combos[5])
}

func TestProductIter_EmptySetShortCircuits(t *testing.T) {
	assert.Empty(t, drain(newProductIter([][]any{{"a"}, {}})))
}

func TestProductIter_NoSets(t *testing.T) {
	// The empty product is a single empty combination.
	combos := drain(newProductIter(nil))
	require.Len(t, combos, 1)
	assert.Empty(t, combos[0])
}
