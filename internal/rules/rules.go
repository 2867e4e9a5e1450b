// Package rules defines the in-memory model of dashboard rules and the
// YAML loader that reads them from a rule library directory.
//
// A rule targets a table type and declares symbolic dimensions, metrics,
// filters and card specifications. Dimensions bind to concrete fields at
// generation time; metrics and filters may be overloaded, with the
// applicable highest-scoring definition winning.
package rules

import (
	"regexp"

	"github.com/leapstack-labs/leapdash/internal/query"
	"github.com/leapstack-labs/leapdash/internal/semtype"
)

// DimensionDef declares how a dimension identifier binds to fields.
type DimensionDef struct {
	// FieldType is either [field-type], binding against the root table,
	// or [table-type, field-type], binding against every context table
	// (root or linked) of the given type. The field type is a semantic type name or a GA
	// dimension literal.
	FieldType []string
	// Named restricts candidates to fields whose internal name matches
	// this pattern, case-insensitively.
	Named string
	// LinksTo restricts candidates to the FK fields that link the root
	// to tables of this type.
	LinksTo semtype.Type
	// Aggregation overrides the temporal aggregation unit for temporal
	// candidates.
	Aggregation string
	Score       int

	named *regexp.Regexp
}

// NamedMatches reports whether the field name satisfies the Named
// constraint. Definitions without one match everything.
func (d *DimensionDef) NamedMatches(name string) bool {
	if d.named == nil {
		return true
	}
	return d.named.MatchString(name)
}

// MetricDef is one definition of a possibly overloaded metric.
type MetricDef struct {
	Metric query.Expr
	Score  int
}

// DimensionRefs returns the dimension identifiers the metric references.
func (d *MetricDef) DimensionRefs() []string {
	return query.DimensionRefs(d.Metric)
}

// FilterDef is one definition of a possibly overloaded filter.
type FilterDef struct {
	Filter query.Expr
	Score  int
}

// DimensionRefs returns the dimension identifiers the filter references.
func (d *FilterDef) DimensionRefs() []string {
	return query.DimensionRefs(d.Filter)
}

// Visualization names the chart type for a card, with optional settings.
// Settings are opaque to the engine except for the known dimension-naming
// keys (map.latitude_column, map.longitude_column), which are rebound per
// card instance.
type Visualization struct {
	Type     string
	Settings map[string]any
}

// OrderBySpec orders a card's results by a dimension or metric identifier.
type OrderBySpec struct {
	ID        string
	Direction string // query.Ascending or query.Descending
}

// CardSpec is the specification of one analytical chart.
type CardSpec struct {
	Title         string
	Description   string
	Visualization *Visualization
	Dimensions    []string
	Metrics       []string
	Filters       []string
	// Query is a native SQL template with [[identifier]] placeholders.
	// Cards with a native query ignore Dimensions/Metrics/Filters for
	// query construction but still bind placeholders.
	Query   string
	Limit   int
	OrderBy []OrderBySpec
	Score   int
}

// Native reports whether the card produces a native query.
func (c *CardSpec) Native() bool { return c.Query != "" }

// NamedDimension pairs a dimension identifier with one of its
// definitions. The same identifier may appear more than once; bindings
// merge at generation time.
type NamedDimension struct {
	ID  string
	Def *DimensionDef
}

// NamedCard pairs a card identifier with its spec, preserving declaration
// order.
type NamedCard struct {
	ID   string
	Spec *CardSpec
}

// Rule is an immutable dashboard rule.
type Rule struct {
	// Name is the rule's identifier, the file name without extension.
	Name        string
	TableType   semtype.Type
	Title       string
	Description string
	// MaxScore is the score ceiling; card scores scale against it.
	MaxScore int

	Dimensions []NamedDimension
	Metrics    map[string][]*MetricDef
	Filters    map[string][]*FilterDef
	Cards      []NamedCard
}

// DimensionIDs returns the distinct dimension identifiers in declaration
// order.
func (r *Rule) DimensionIDs() []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, d := range r.Dimensions {
		if _, ok := seen[d.ID]; !ok {
			seen[d.ID] = struct{}{}
			ids = append(ids, d.ID)
		}
	}
	return ids
}
