package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/leapstack-labs/leapdash/internal/dashgen"
	"github.com/leapstack-labs/leapdash/internal/expander"
	"github.com/leapstack-labs/leapdash/internal/query"
	"github.com/leapstack-labs/leapdash/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(nil)
	require.NoError(t, s.Open(":memory:"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CreateAndGetDashboard(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	meta := dashgen.Meta{
		Title:       "A look at Orders",
		Description: "Automatic insights",
		RuleName:    "transactions",
		TableID:     1,
		DatabaseID:  1,
	}
	cards := []*expander.Card{
		{
			ID:    "TotalOrders",
			Title: "Total Orders",
			Query: query.NewStructured(1, &query.StructuredQuery{
				SourceTable: 1,
				Aggregation: []query.Expr{&query.Sexp{Op: "count"}},
			}),
			Score: 100,
		},
		{
			ID:            "OrdersByDay",
			Title:         "Orders by day",
			Visualization: &rules.Visualization{Type: "line"},
			Query:         query.NewNative(1, "SELECT count(*) FROM orders"),
			Score:         80,
		},
	}

	id, err := s.CreateDashboard(ctx, meta, cards)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	d, err := s.GetDashboard(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "A look at Orders", d.Title)
	assert.Equal(t, "transactions", d.RuleName)
	require.Len(t, d.Cards, 2)

	// Cards come back in position order with their query forms intact.
	assert.Equal(t, "TotalOrders", d.Cards[0].CardID)
	var form map[string]any
	require.NoError(t, json.Unmarshal([]byte(d.Cards[0].Query), &form))
	assert.Equal(t, "query", form["type"])

	assert.Equal(t, "OrdersByDay", d.Cards[1].CardID)
	var viz map[string]any
	require.NoError(t, json.Unmarshal([]byte(d.Cards[1].Visualization), &viz))
	assert.Equal(t, "line", viz["type"])
	assert.Empty(t, d.Cards[0].Visualization)
}

func TestStore_GetDashboard_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetDashboard(context.Background(), "nope")
	assert.Error(t, err)
}

func TestStore_ListDashboards(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"first", "second"} {
		_, err := s.CreateDashboard(ctx, dashgen.Meta{Title: title, RuleName: "r", TableID: 1, DatabaseID: 1}, nil)
		require.NoError(t, err)
	}

	dashboards, err := s.ListDashboards(ctx)
	require.NoError(t, err)
	assert.Len(t, dashboards, 2)
}
