package query

// Order directions as written in rule files.
const (
	Ascending  = "ascending"
	Descending = "descending"
)

// OrderBy orders query results by a dimension or aggregation target.
type OrderBy struct {
	Direction string // Ascending or Descending
	Target    Expr
}

// StructuredQuery is the inner query of a structured analytical query.
type StructuredQuery struct {
	SourceTable int64
	Filter      Expr // nil when unfiltered; multiple clauses combine as And
	Aggregation []Expr
	Breakout    []Expr
	Limit       int
	OrderBy     []OrderBy
}

// NativeQuery wraps a native SQL string.
type NativeQuery struct {
	Query string
}

// Query is a complete analytical query, either structured or native.
type Query struct {
	DatabaseID int64
	Structured *StructuredQuery
	Native     *NativeQuery
}

// NewStructured creates a structured query against the given database.
func NewStructured(databaseID int64, inner *StructuredQuery) *Query {
	return &Query{DatabaseID: databaseID, Structured: inner}
}

// NewNative creates a native query against the given database.
func NewNative(databaseID int64, sql string) *Query {
	return &Query{DatabaseID: databaseID, Native: &NativeQuery{Query: sql}}
}

// CombineFilters combines filter clauses: nil for none, the clause itself
// for one, an And form for several.
func CombineFilters(clauses []Expr) Expr {
	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		return &And{Clauses: clauses}
	}
}

// Form returns the serializable map form of the query.
func (q *Query) Form() map[string]any {
	if q.Native != nil {
		return map[string]any{
			"type":     "native",
			"database": q.DatabaseID,
			"native":   map[string]any{"query": q.Native.Query},
		}
	}

	inner := map[string]any{
		"source_table": q.Structured.SourceTable,
	}
	if q.Structured.Filter != nil {
		inner["filter"] = q.Structured.Filter.Form()
	}
	if len(q.Structured.Aggregation) > 0 {
		inner["aggregation"] = forms(q.Structured.Aggregation)
	}
	if len(q.Structured.Breakout) > 0 {
		inner["breakout"] = forms(q.Structured.Breakout)
	}
	if q.Structured.Limit > 0 {
		inner["limit"] = q.Structured.Limit
	}
	if len(q.Structured.OrderBy) > 0 {
		orderBy := make([]any, 0, len(q.Structured.OrderBy))
		for _, ob := range q.Structured.OrderBy {
			dir := "asc"
			if ob.Direction == Descending {
				dir = "desc"
			}
			orderBy = append(orderBy, []any{dir, ob.Target.Form()})
		}
		inner["order_by"] = orderBy
	}

	return map[string]any{
		"type":     "query",
		"database": q.DatabaseID,
		"query":    inner,
	}
}

func forms(exprs []Expr) []any {
	out := make([]any, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, e.Form())
	}
	return out
}
