// Package binder builds the per-run binding context: it resolves a
// rule's symbolic dimensions against the fields reachable from a root
// table and picks the winning definition of every overloaded metric and
// filter.
package binder

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapdash/internal/catalog"
	"github.com/leapstack-labs/leapdash/internal/query"
	"github.com/leapstack-labs/leapdash/internal/rules"
	"github.com/leapstack-labs/leapdash/internal/semtype"
)

// FieldBinding is a candidate field for a dimension, merged with the
// definition that matched it.
type FieldBinding struct {
	Field *catalog.Field
	// Link is copied from the table the field was found on: the FK field
	// on the root through which that table was reached, nil for fields
	// of the root itself.
	Link *int64
	// TableName is the internal name of the owning table.
	TableName string
	Def       *rules.DimensionDef
}

// Target renders the binding for the reference resolver.
func (b *FieldBinding) Target() *query.FieldTarget {
	return &query.FieldTarget{
		Field:     b.Field,
		Link:      b.Link,
		Unit:      b.Def.Aggregation,
		TableName: b.TableName,
	}
}

// BoundDimension is a dimension definition together with its matches.
type BoundDimension struct {
	Def     *rules.DimensionDef
	Matches []*FieldBinding
}

// Context is the binding environment of one generation run. It is built
// once and read-only afterwards; the field snapshot taken at build time
// keeps the run consistent even if the catalog changes underneath.
type Context struct {
	Root       *catalog.Table
	Rule       *rules.Rule
	Tables     []*catalog.Table
	DatabaseID int64

	Dimensions map[string]*BoundDimension
	Metrics    map[string]*rules.MetricDef
	Filters    map[string]*rules.FilterDef

	types  *semtype.Registry
	isGA   func(string) bool
	fields map[int64][]*catalog.Field
}

// NewContext builds the binding context for root under rule. isGA may be
// nil when the rule library defines no GA dimension literals.
func NewContext(ctx context.Context, cat catalog.Catalog, types *semtype.Registry, isGA func(string) bool, root *catalog.Table, rule *rules.Rule) (*Context, error) {
	if isGA == nil {
		isGA = func(string) bool { return false }
	}

	linked, err := catalog.LinkedTables(ctx, cat, root)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked tables: %w", err)
	}

	c := &Context{
		Root:       root,
		Rule:       rule,
		Tables:     append([]*catalog.Table{root}, linked...),
		DatabaseID: root.DatabaseID,
		types:      types,
		isGA:       isGA,
		fields:     make(map[int64][]*catalog.Field),
	}

	// Snapshot every reachable table's fields up front.
	for _, t := range c.Tables {
		if _, ok := c.fields[t.ID]; ok {
			continue
		}
		fields, err := cat.FieldsOf(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list fields of table %d: %w", t.ID, err)
		}
		c.fields[t.ID] = fields
	}

	c.bindDimensions()
	c.Metrics = resolveOverloads(rule.Metrics, c.applicableMetric)
	c.Filters = resolveOverloads(rule.Filters, c.applicableFilter)

	return c, nil
}

// Types returns the semantic type registry of the run.
func (c *Context) Types() *semtype.Registry { return c.types }

// TablesOfType returns the context tables whose entity type is-a t.
func (c *Context) TablesOfType(t semtype.Type) []*catalog.Table {
	var tables []*catalog.Table
	for _, table := range c.Tables {
		if c.types.IsA(table.EntityType, t) {
			tables = append(tables, table)
		}
	}
	return tables
}

// ResolveEntity resolves an entity reference from a rule template:
// "this" names the root table, a table-type name the first context table
// of that type.
func (c *Context) ResolveEntity(ref string) (*catalog.Table, bool) {
	if ref == "this" {
		return c.Root, true
	}
	if tables := c.TablesOfType(semtype.Type(ref)); len(tables) > 0 {
		return tables[0], true
	}
	return nil, false
}

// EntityLookup adapts ResolveEntity for template substitution.
func (c *Context) EntityLookup() query.EntityLookup {
	return func(id string) (any, bool) {
		table, ok := c.ResolveEntity(id)
		if !ok {
			return nil, false
		}
		return &query.TableTarget{Table: table}, true
	}
}
