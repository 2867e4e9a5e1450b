// Package expander turns card specifications into concrete card
// instances: one per combination of candidate bindings, each carrying a
// constructed query, substituted presentation metadata and a composite
// score.
package expander

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leapdash/internal/binder"
	"github.com/leapstack-labs/leapdash/internal/query"
	"github.com/leapstack-labs/leapdash/internal/rules"
	"github.com/leapstack-labs/leapdash/internal/semtype"
)

// Permissions is the current user's permission set: the set of permission
// paths the user holds.
type Permissions map[string]struct{}

// NewPermissions builds a permission set from paths.
func NewPermissions(paths ...string) Permissions {
	p := make(Permissions, len(paths))
	for _, path := range paths {
		p[path] = struct{}{}
	}
	return p
}

// AccessPolicy decides whether a candidate query may run for a user.
// It is consulted once per candidate; denials drop that candidate only.
type AccessPolicy interface {
	HasPermission(q *query.Query, perms Permissions) bool
}

// AllowAll permits every query.
type AllowAll struct{}

// HasPermission always reports true.
func (AllowAll) HasPermission(*query.Query, Permissions) bool { return true }

// DatabasePolicy permits queries against databases the user holds a
// "/db/<id>/" permission path for.
type DatabasePolicy struct{}

// HasPermission reports whether perms contains the query's database path.
func (DatabasePolicy) HasPermission(q *query.Query, perms Permissions) bool {
	_, ok := perms[fmt.Sprintf("/db/%d/", q.DatabaseID)]
	return ok
}

// Card is one instantiated analytical card.
type Card struct {
	ID            string
	Title         string
	Description   string
	Visualization *rules.Visualization
	Query         *query.Query
	Score         float64
}

// Expand enumerates every instantiation of the card spec under the bound
// context: the Cartesian product of candidate bindings for the
// dimensions the card uses, minus the combinations the access policy
// denies. A card using a dimension with no candidates yields nothing.
func Expand(c *binder.Context, id string, spec *rules.CardSpec, policy AccessPolicy, perms Permissions) []*Card {
	metrics := make([]*rules.MetricDef, 0, len(spec.Metrics))
	for _, name := range spec.Metrics {
		metrics = append(metrics, c.Metrics[name])
	}
	filters := make([]*rules.FilterDef, 0, len(spec.Filters))
	for _, name := range spec.Filters {
		filters = append(filters, c.Filters[name])
	}

	score := computeScore(c, spec, metrics, filters)
	orderBy := resolveOrderBy(spec)

	used := usedDimensions(spec, metrics, filters)
	sets := make([][]any, len(used))
	for i, dim := range used {
		sets[i] = candidateSet(c, dim)
	}

	var cards []*Card
	iter := newProductIter(sets)
	for {
		combo, ok := iter.next()
		if !ok {
			break
		}

		bindings := make(map[string]any, len(used))
		for i, dim := range used {
			bindings[dim] = combo[i]
		}

		q := buildQuery(c, spec, metrics, filters, orderBy, bindings)
		if !policy.HasPermission(q, perms) {
			continue
		}

		cards = append(cards, &Card{
			ID:            id,
			Title:         query.SubstituteString(c.Types(), query.TemplateText, spec.Title, bindings, c.EntityLookup()),
			Description:   query.SubstituteString(c.Types(), query.TemplateText, spec.Description, bindings, c.EntityLookup()),
			Visualization: substituteVisualization(spec.Visualization, bindings),
			Query:         q,
			Score:         score,
		})
	}
	return cards
}

// computeScore derives the card's composite score: native cards keep
// their declared score; structured cards take the mean of the scores of
// everything they reference, scaled by the card's own score against the
// rule ceiling.
func computeScore(c *binder.Context, spec *rules.CardSpec, metrics []*rules.MetricDef, filters []*rules.FilterDef) float64 {
	if spec.Native() {
		return float64(spec.Score)
	}

	var sum, n int
	for _, dim := range spec.Dimensions {
		if bound, ok := c.Dimensions[dim]; ok {
			sum += bound.Def.Score
			n++
		}
	}
	for _, m := range metrics {
		sum += m.Score
		n++
	}
	for _, f := range filters {
		sum += f.Score
		n++
	}
	if n == 0 {
		return 0
	}

	mean := float64(sum) / float64(n)
	return mean * float64(spec.Score) / float64(c.Rule.MaxScore)
}

// resolveOrderBy maps order-by identifiers onto query targets: card
// dimensions order by the dimension, card metrics by the position of
// the identifier in the card's metric list. Identifiers in neither list
// are skipped.
func resolveOrderBy(spec *rules.CardSpec) []query.OrderBy {
	var orderBy []query.OrderBy
	for _, ob := range spec.OrderBy {
		var target query.Expr
		if containsString(spec.Dimensions, ob.ID) {
			target = &query.Dimension{ID: ob.ID}
		} else if i := indexOf(spec.Metrics, ob.ID); i >= 0 {
			target = &query.AggregateField{Index: i}
		} else {
			continue
		}
		orderBy = append(orderBy, query.OrderBy{Direction: ob.Direction, Target: target})
	}
	return orderBy
}

// usedDimensions collects the identifiers the card binds: its dimension
// list, the dimensions its metrics and filters reference, and, for
// native cards, the placeholders of the query template.
func usedDimensions(spec *rules.CardSpec, metrics []*rules.MetricDef, filters []*rules.FilterDef) []string {
	var used []string
	seen := make(map[string]struct{})
	add := func(ids ...string) {
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				used = append(used, id)
			}
		}
	}

	add(spec.Dimensions...)
	for _, m := range metrics {
		add(m.DimensionRefs()...)
	}
	for _, f := range filters {
		add(f.DimensionRefs()...)
	}
	if spec.Native() {
		add(query.Placeholders(spec.Query)...)
	}
	return used
}

// candidateSet returns the candidates of one used identifier: the bound
// dimension's matches, or the context tables named by an entity
// reference.
func candidateSet(c *binder.Context, id string) []any {
	if bound, ok := c.Dimensions[id]; ok {
		set := make([]any, 0, len(bound.Matches))
		for _, m := range bound.Matches {
			set = append(set, m.Target())
		}
		return set
	}

	if id == "this" {
		return []any{&query.TableTarget{Table: c.Root}}
	}
	tables := c.TablesOfType(semtype.Type(id))
	set := make([]any, 0, len(tables))
	for _, t := range tables {
		set = append(set, &query.TableTarget{Table: t})
	}
	return set
}

// buildQuery constructs the candidate query for one combination.
func buildQuery(c *binder.Context, spec *rules.CardSpec, metrics []*rules.MetricDef, filters []*rules.FilterDef, orderBy []query.OrderBy, bindings map[string]any) *query.Query {
	if spec.Native() {
		sql := query.SubstituteString(c.Types(), query.TemplateNative, spec.Query, bindings, c.EntityLookup())
		return query.NewNative(c.DatabaseID, sql)
	}

	inner := &query.StructuredQuery{
		SourceTable: c.Root.ID,
		Limit:       spec.Limit,
	}

	for _, m := range metrics {
		inner.Aggregation = append(inner.Aggregation, query.SubstituteExpr(c.Types(), m.Metric, bindings))
	}
	for _, dim := range spec.Dimensions {
		inner.Breakout = append(inner.Breakout, query.SubstituteExpr(c.Types(), &query.Dimension{ID: dim}, bindings))
	}

	clauses := make([]query.Expr, 0, len(filters))
	for _, f := range filters {
		clauses = append(clauses, query.SubstituteExpr(c.Types(), f.Filter, bindings))
	}
	inner.Filter = query.CombineFilters(clauses)

	for _, ob := range orderBy {
		inner.OrderBy = append(inner.OrderBy, query.OrderBy{
			Direction: ob.Direction,
			Target:    query.SubstituteExpr(c.Types(), ob.Target, bindings),
		})
	}

	return query.NewStructured(c.DatabaseID, inner)
}

// vizColumns are the visualization settings that name dimensions and are
// rebound to concrete fields per instance.
type vizColumns struct {
	Latitude  string `mapstructure:"map.latitude_column"`
	Longitude string `mapstructure:"map.longitude_column"`
}

// substituteVisualization rebinds the dimension-naming settings of a
// card's visualization to the fields of the current combination.
func substituteVisualization(viz *rules.Visualization, bindings map[string]any) *rules.Visualization {
	if viz == nil {
		return nil
	}
	out := &rules.Visualization{Type: viz.Type}
	if len(viz.Settings) == 0 {
		return out
	}

	out.Settings = make(map[string]any, len(viz.Settings))
	for k, v := range viz.Settings {
		out.Settings[k] = v
	}

	var cols vizColumns
	if err := mapstructure.Decode(viz.Settings, &cols); err != nil {
		return out
	}
	rebind := func(key, dim string) {
		if dim == "" {
			return
		}
		if target, ok := bindings[dim].(*query.FieldTarget); ok {
			out.Settings[key] = target.Field.ID
		}
	}
	rebind("map.latitude_column", cols.Latitude)
	rebind("map.longitude_column", cols.Longitude)
	return out
}

func containsString(xs []string, s string) bool {
	return indexOf(xs, s) >= 0
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
