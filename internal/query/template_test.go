package query

import (
	"testing"

	"github.com/leapstack-labs/leapdash/internal/catalog"
	"github.com/leapstack-labs/leapdash/internal/semtype"
	"github.com/stretchr/testify/assert"
)

func TestSubstituteString(t *testing.T) {
	types := semtype.Builtin()

	bindings := map[string]any{
		"Timestamp": &FieldTarget{
			Field: &catalog.Field{ID: 9, Name: "created_at", DisplayName: "Created At", BaseType: semtype.DateTime},
		},
	}
	lookup := func(id string) (any, bool) {
		if id == "this" {
			return &TableTarget{Table: &catalog.Table{Name: "orders", DisplayName: "Orders"}}, true
		}
		return nil, false
	}

	got := SubstituteString(types, TemplateText, "[[this]] by [[Timestamp]]", bindings, lookup)
	assert.Equal(t, "Orders by Created At", got)

	// Unresolvable identifiers splice in bare.
	got = SubstituteString(types, TemplateText, "about [[Mystery]]", bindings, lookup)
	assert.Equal(t, "about Mystery", got)
}

func TestSubstituteString_Native(t *testing.T) {
	types := semtype.Builtin()

	bindings := map[string]any{
		"Income": &FieldTarget{
			Field:     &catalog.Field{ID: 4, Name: "total", BaseType: semtype.Float},
			TableName: "orders",
		},
	}

	got := SubstituteString(types, TemplateNative,
		"SELECT sum([[Income]]) FROM [[this]]", bindings,
		func(id string) (any, bool) {
			if id == "this" {
				return &TableTarget{Table: &catalog.Table{Name: "orders"}}, true
			}
			return nil, false
		})
	assert.Equal(t, "SELECT sum(orders.total) FROM orders", got)
}

func TestSubstituteExpr(t *testing.T) {
	types := semtype.Builtin()

	bindings := map[string]any{
		"Income": &FieldTarget{Field: &catalog.Field{ID: 4, Name: "total", BaseType: semtype.Float}},
	}

	e := &Sexp{Op: "sum", Args: []Expr{&Dimension{ID: "Income"}}}
	got := SubstituteExpr(types, e, bindings)
	assert.Equal(t, &Sexp{Op: "sum", Args: []Expr{&FieldRef{FieldID: 4}}}, got)

	// Unbound dimensions survive, supporting partially-resolved templates.
	unbound := &Sexp{Op: "sum", Args: []Expr{&Dimension{ID: "Other"}}}
	assert.Equal(t, unbound, SubstituteExpr(types, unbound, bindings))

	// The original tree is not mutated.
	assert.Equal(t, &Dimension{ID: "Income"}, e.Args[0])
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"this", "Timestamp"}, Placeholders("[[this]] by [[Timestamp]] and [[this]]"))
	assert.Empty(t, Placeholders("no placeholders here"))
}
