package binder

import (
	"github.com/leapstack-labs/leapdash/internal/catalog"
	"github.com/leapstack-labs/leapdash/internal/rules"
	"github.com/leapstack-labs/leapdash/internal/semtype"
)

// bindDimensions computes the candidate set for every dimension in the
// rule, merging bindings when the rule declares the same identifier more
// than once.
func (c *Context) bindDimensions() {
	c.Dimensions = make(map[string]*BoundDimension)
	for _, nd := range c.Rule.Dimensions {
		b := &BoundDimension{Def: nd.Def, Matches: c.candidates(nd.Def)}
		if existing, ok := c.Dimensions[nd.ID]; ok {
			c.Dimensions[nd.ID] = mergeBound(existing, b)
		} else {
			c.Dimensions[nd.ID] = b
		}
	}
}

// candidates computes the field candidates of one dimension definition.
func (c *Context) candidates(def *rules.DimensionDef) []*FieldBinding {
	if def.LinksTo != "" {
		// Bind without the constraint, then keep only the FK fields that
		// link the root to a table of the required type.
		stripped := *def
		stripped.LinksTo = ""

		links := make(map[int64]struct{})
		for _, t := range c.TablesOfType(def.LinksTo) {
			if t.Link != nil {
				links[*t.Link] = struct{}{}
			}
		}

		var kept []*FieldBinding
		for _, cand := range c.candidates(&stripped) {
			if _, ok := links[cand.Field.ID]; ok {
				kept = append(kept, cand)
			}
		}
		return kept
	}

	if len(def.FieldType) == 2 {
		tableType := semtype.Type(def.FieldType[0])
		fieldSpec := def.FieldType[1]

		var bindings []*FieldBinding
		for _, t := range c.TablesOfType(tableType) {
			bindings = append(bindings, c.tableCandidates(def, fieldSpec, t)...)
		}
		return bindings
	}

	return c.tableCandidates(def, def.FieldType[0], c.Root)
}

// tableCandidates applies the predicate pack to one table's fields.
// Link-only tables (nothing but keys) contribute no candidates.
func (c *Context) tableCandidates(def *rules.DimensionDef, fieldSpec string, t *catalog.Table) []*FieldBinding {
	fields := c.fields[t.ID]
	if catalog.LinkOnly(c.types, fields) {
		return nil
	}

	var bindings []*FieldBinding
	for _, f := range fields {
		if !c.fieldMatches(def, fieldSpec, f) {
			continue
		}
		bindings = append(bindings, &FieldBinding{
			Field:     f,
			Link:      t.Link,
			TableName: t.Name,
			Def:       def,
		})
	}
	return bindings
}

// fieldMatches is the predicate pack: not a numeric key, satisfies the
// field spec, satisfies the named pattern.
func (c *Context) fieldMatches(def *rules.DimensionDef, fieldSpec string, f *catalog.Field) bool {
	if catalog.NumericKey(c.types, f) {
		return false
	}
	if c.isGA(fieldSpec) {
		if f.Name != fieldSpec {
			return false
		}
	} else {
		want := semtype.Type(fieldSpec)
		if !c.types.IsA(f.SpecialType, want) && !c.types.IsA(f.BaseType, want) {
			return false
		}
	}
	return def.NamedMatches(f.Name)
}

// mergeBound combines two bindings of the same identifier: a non-empty
// match set beats an empty one, then the higher score wins, then the
// first-seen binding is kept.
func mergeBound(a, b *BoundDimension) *BoundDimension {
	aEmpty, bEmpty := len(a.Matches) == 0, len(b.Matches) == 0
	switch {
	case aEmpty && !bEmpty:
		return b
	case !aEmpty && bEmpty:
		return a
	case b.Def.Score > a.Def.Score:
		return b
	default:
		return a
	}
}
