package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapdash/internal/query"
	"github.com/leapstack-labs/leapdash/internal/semtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transactionsRule = `
table_type: TransactionTable
title: "A look at [[this]]"
description: "Highlights of [[this]]"
max_score: 100
dimensions:
  - Timestamp:
      field_type: [Temporal]
      score: 60
  - Income:
      field_type: [Income]
      score: 70
  - SourceCountry:
      field_type: [UserTable, Country]
      score: 50
metrics:
  - Count:
      metric: [count]
      score: 100
  - AvgIncome:
      metric: [avg, [dimension, Income]]
      score: 70
  - AvgIncome:
      metric: [avg, [dimension, Income]]
      score: 50
filters:
  - Last30Days:
      filter: [time-interval, [dimension, Timestamp], -30, day]
      score: 100
cards:
  - TotalTransactions:
      title: "Total [[this]]"
      visualization: scalar
      metrics: [Count]
      score: 100
  - ByDay:
      title: "[[this]] by day"
      visualization: line
      dimensions: [Timestamp]
      metrics: [Count]
      order_by:
        - Timestamp: ascending
      limit: 90
      score: 90
`

func TestParseRule(t *testing.T) {
	rule, err := ParseRule("transactions", []byte(transactionsRule))
	require.NoError(t, err)

	assert.Equal(t, "transactions", rule.Name)
	assert.Equal(t, semtype.TransactionTable, rule.TableType)
	assert.Equal(t, 100, rule.MaxScore)

	// Declaration order is preserved.
	require.Len(t, rule.Dimensions, 3)
	assert.Equal(t, "Timestamp", rule.Dimensions[0].ID)
	assert.Equal(t, "SourceCountry", rule.Dimensions[2].ID)
	assert.Equal(t, []string{"UserTable", "Country"}, rule.Dimensions[2].Def.FieldType)

	// Repeated identifiers accumulate as overloads, in order.
	require.Len(t, rule.Metrics["AvgIncome"], 2)
	assert.Equal(t, 70, rule.Metrics["AvgIncome"][0].Score)
	assert.Equal(t, 50, rule.Metrics["AvgIncome"][1].Score)
	assert.Equal(t, []string{"Income"}, rule.Metrics["AvgIncome"][0].DimensionRefs())

	require.Len(t, rule.Cards, 2)
	byDay := rule.Cards[1]
	assert.Equal(t, "ByDay", byDay.ID)
	assert.Equal(t, "line", byDay.Spec.Visualization.Type)
	assert.Equal(t, 90, byDay.Spec.Limit)
	require.Len(t, byDay.Spec.OrderBy, 1)
	assert.Equal(t, OrderBySpec{ID: "Timestamp", Direction: query.Ascending}, byDay.Spec.OrderBy[0])
}

func TestParseRule_NamedPattern(t *testing.T) {
	rule, err := ParseRule("r", []byte(`
table_type: GenericTable
dimensions:
  - Lat:
      field_type: [Number]
      named: "lat(itude)?"
      score: 50
`))
	require.NoError(t, err)

	def := rule.Dimensions[0].Def
	assert.True(t, def.NamedMatches("latitude"))
	assert.True(t, def.NamedMatches("LAT"))
	assert.False(t, def.NamedMatches("altitude_x"))
}

func TestParseRule_VisualizationSettings(t *testing.T) {
	rule, err := ParseRule("r", []byte(`
table_type: GenericTable
dimensions:
  - Lat:
      field_type: [Latitude]
      score: 50
  - Long:
      field_type: [Longitude]
      score: 50
cards:
  - Map:
      title: "Locations"
      visualization:
        map:
          map.latitude_column: Lat
          map.longitude_column: Long
      dimensions: [Lat, Long]
      score: 80
`))
	require.NoError(t, err)

	viz := rule.Cards[0].Spec.Visualization
	assert.Equal(t, "map", viz.Type)
	assert.Equal(t, "Lat", viz.Settings["map.latitude_column"])
}

func TestParseRule_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown top-level field", "table_type: GenericTable\nbogus: 1\n"},
		{"missing table_type", "title: x\n"},
		{"unknown dimension field", "table_type: GenericTable\ndimensions:\n  - D:\n      field_type: [Number]\n      nope: 1\n"},
		{"empty field_type", "table_type: GenericTable\ndimensions:\n  - D:\n      field_type: []\n"},
		{"bad named regex", "table_type: GenericTable\ndimensions:\n  - D:\n      field_type: [Number]\n      named: \"(\"\n"},
		{"bad order_by direction", "table_type: GenericTable\ncards:\n  - C:\n      order_by:\n        - D: sideways\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRule("r", []byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "transactions.yaml"), []byte(transactionsRule), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generic.yaml"), []byte("table_type: GenericTable\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ga_dimensions.yaml"), []byte("ga_dimensions: [\"ga:sessionCount\"]\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	rules, gaDims, err := LoadDir(dir)
	require.NoError(t, err)

	require.Len(t, rules, 2)
	assert.Equal(t, "generic", rules[0].Name)
	assert.Equal(t, "transactions", rules[1].Name)
	assert.Equal(t, []string{"ga:sessionCount"}, gaDims)
}

func TestLibrary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transactions.yaml"), []byte(transactionsRule), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generic.yaml"), []byte("table_type: GenericTable\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ga_dimensions.yaml"), []byte("ga_dimensions: [\"ga:sessionCount\"]\n"), 0o600))

	lib, err := Open(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, lib.Count())

	_, ok := lib.Rule("transactions")
	assert.True(t, ok)
	_, ok = lib.Rule("nope")
	assert.False(t, ok)

	// Compiled-in defaults plus the library's own additions.
	assert.True(t, lib.IsGADimension("ga:date"))
	assert.True(t, lib.IsGADimension("ga:sessionCount"))
	assert.False(t, lib.IsGADimension("created_at"))

	types := semtype.Builtin()
	matching := lib.Matching(types, semtype.TransactionTable)
	require.Len(t, matching, 2) // generic applies too

	matching = lib.Matching(types, semtype.UserTable)
	require.Len(t, matching, 1)
	assert.Equal(t, "generic", matching[0].Name)
}
