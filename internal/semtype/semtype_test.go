package semtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_IsA(t *testing.T) {
	r := Builtin()

	tests := []struct {
		name     string
		child    Type
		ancestor Type
		want     bool
	}{
		{"reflexive", Number, Number, true},
		{"direct child", Integer, Number, true},
		{"transitive", Quantity, Number, true},
		{"temporal chain", CreationTimestamp, Temporal, true},
		{"not related", Integer, Temporal, false},
		{"reversed", Number, Integer, false},
		{"unknown child", Type("Bogus"), Number, false},
		{"empty child", Type(""), Number, false},
		{"empty ancestor", Number, Type(""), false},
		{"entity type", TransactionTable, GenericTable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IsA(tt.child, tt.ancestor))
		})
	}
}

func TestRegistry_AncestorChain(t *testing.T) {
	r := Builtin()

	assert.Equal(t, []Type{Quantity, Integer, Number}, r.AncestorChain(Quantity))
	assert.Equal(t, []Type{Number}, r.AncestorChain(Number))
	assert.Equal(t, []Type{Type("Bogus")}, r.AncestorChain(Type("Bogus")))
}

func TestRegistry_AncestorCount(t *testing.T) {
	r := Builtin()

	// Specificity ordering used by rule selection.
	assert.Greater(t, r.AncestorCount(TransactionTable), r.AncestorCount(GenericTable))
	assert.Equal(t, 4, r.AncestorCount(CreationTimestamp))
	assert.Equal(t, 1, r.AncestorCount(Temporal))
}

func TestRegistry_Known(t *testing.T) {
	r := Builtin()

	assert.True(t, r.Known(Latitude))
	assert.False(t, r.Known(Type("NotAType")))

	r.Register("Custom", Text)
	assert.True(t, r.Known("Custom"))
	assert.True(t, r.IsA("Custom", Text))
}
