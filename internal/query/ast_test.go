package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseForm(t *testing.T) {
	e, err := ParseForm([]any{"sum", []any{"dimension", "Income"}})
	require.NoError(t, err)

	sexp, ok := e.(*Sexp)
	require.True(t, ok)
	assert.Equal(t, "sum", sexp.Op)
	require.Len(t, sexp.Args, 1)
	assert.Equal(t, &Dimension{ID: "Income"}, sexp.Args[0])
}

func TestParseForm_KnownHeads(t *testing.T) {
	e, err := ParseForm([]any{"datetime-field", []any{"field-id", 3}, "month"})
	require.NoError(t, err)

	dt, ok := e.(*DatetimeField)
	require.True(t, ok)
	assert.Equal(t, "month", dt.Unit)
	assert.Equal(t, &FieldRef{FieldID: 3}, dt.Field)
}

func TestParseForm_Errors(t *testing.T) {
	_, err := ParseForm([]any{})
	assert.Error(t, err)

	_, err = ParseForm([]any{42, "x"})
	assert.Error(t, err)

	_, err = ParseForm([]any{"dimension"})
	assert.Error(t, err)

	_, err = ParseForm(nil)
	assert.Error(t, err)
}

func TestForm(t *testing.T) {
	e := &And{Clauses: []Expr{
		&Sexp{Op: "time-interval", Args: []Expr{
			&Dimension{ID: "Timestamp"},
			&Literal{Value: -30},
			&Literal{Value: "day"},
		}},
		&Sexp{Op: "=", Args: []Expr{&FieldRef{FieldID: 7}, &Literal{Value: true}}},
	}}

	want := []any{
		"and",
		[]any{"time-interval", []any{"dimension", "Timestamp"}, -30, "day"},
		[]any{"=", []any{"field-id", int64(7)}, true},
	}
	assert.Equal(t, want, e.Form())
}

func TestDimensionRefs(t *testing.T) {
	e := &Sexp{Op: "/", Args: []Expr{
		&Sexp{Op: "sum", Args: []Expr{&Dimension{ID: "Income"}}},
		&Sexp{Op: "count", Args: []Expr{&Dimension{ID: "Income"}, &Dimension{ID: "Timestamp"}}},
	}}

	assert.Equal(t, []string{"Income", "Timestamp"}, DimensionRefs(e))
	assert.Empty(t, DimensionRefs(&Sexp{Op: "count"}))
	assert.Empty(t, DimensionRefs(nil))
}

func TestQueryForm_Structured(t *testing.T) {
	q := NewStructured(1, &StructuredQuery{
		SourceTable: 2,
		Filter: CombineFilters([]Expr{
			&Sexp{Op: ">", Args: []Expr{&FieldRef{FieldID: 5}, &Literal{Value: 0}}},
			&Sexp{Op: "<", Args: []Expr{&FieldRef{FieldID: 5}, &Literal{Value: 10}}},
		}),
		Aggregation: []Expr{&Sexp{Op: "count"}},
		Breakout:    []Expr{&FieldRef{FieldID: 5}},
		Limit:       10,
		OrderBy:     []OrderBy{{Direction: Descending, Target: &AggregateField{Index: 0}}},
	})

	form := q.Form()
	assert.Equal(t, "query", form["type"])
	assert.Equal(t, int64(1), form["database"])

	inner := form["query"].(map[string]any)
	assert.Equal(t, int64(2), inner["source_table"])
	assert.Equal(t, 10, inner["limit"])

	// Two clauses combine under "and".
	filter := inner["filter"].([]any)
	assert.Equal(t, "and", filter[0])
	assert.Len(t, filter, 3)

	orderBy := inner["order_by"].([]any)
	assert.Equal(t, []any{"desc", []any{"aggregate-field", 0}}, orderBy[0])
}

func TestQueryForm_Native(t *testing.T) {
	q := NewNative(3, "SELECT count(*) FROM orders")

	form := q.Form()
	assert.Equal(t, "native", form["type"])
	assert.Equal(t, int64(3), form["database"])
	assert.Equal(t, map[string]any{"query": "SELECT count(*) FROM orders"}, form["native"])
}

func TestCombineFilters(t *testing.T) {
	assert.Nil(t, CombineFilters(nil))

	single := &Sexp{Op: "not-null", Args: []Expr{&FieldRef{FieldID: 1}}}
	assert.Equal(t, Expr(single), CombineFilters([]Expr{single}))
}
