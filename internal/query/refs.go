package query

import (
	"github.com/leapstack-labs/leapdash/internal/catalog"
	"github.com/leapstack-labs/leapdash/internal/semtype"
)

// TemplateType selects the rendering of a bound entity: into a structured
// query tree, into free text, or into a native SQL identifier.
type TemplateType int

const (
	TemplateStructured TemplateType = iota
	TemplateText
	TemplateNative
)

// DefaultTemporalUnit is the aggregation unit applied to temporal
// references when the dimension does not specify one.
const DefaultTemporalUnit = "day"

// FieldTarget is a field bound to a dimension, carrying the binding
// annotations the resolver needs.
type FieldTarget struct {
	Field *catalog.Field
	// Link is the FK field on the root table through which the field's
	// table was reached, nil for fields of the root itself.
	Link *int64
	// Unit overrides the temporal aggregation unit.
	Unit string
	// TableName is the internal name of the owning table, used for
	// native references.
	TableName string
}

// TableTarget is a table bound via an entity reference.
type TableTarget struct {
	Table *catalog.Table
}

// Reference renders a bound entity into the requested template type.
// Fields and tables have dedicated renderings; anything else passes
// through unchanged so partially-resolved templates survive substitution.
func Reference(types *semtype.Registry, tt TemplateType, target any) any {
	switch target := target.(type) {
	case *FieldTarget:
		switch tt {
		case TemplateStructured:
			return structuredFieldRef(types, target)
		case TemplateText:
			return catalog.FieldDisplayName(target.Field)
		case TemplateNative:
			if target.TableName == "" {
				return target.Field.Name
			}
			return target.TableName + "." + target.Field.Name
		}
		return target

	case *TableTarget:
		switch tt {
		case TemplateText:
			return catalog.TableDisplayName(target.Table)
		case TemplateNative:
			return target.Table.Name
		}
		return target

	default:
		return target
	}
}

func structuredFieldRef(types *semtype.Registry, t *FieldTarget) Expr {
	var ref Expr
	switch {
	case t.Link != nil:
		ref = &FKRef{LinkFieldID: *t.Link, FieldID: t.Field.ID}
	case t.Field.FKTargetFieldID != nil:
		ref = &FKRef{LinkFieldID: t.Field.ID, FieldID: *t.Field.FKTargetFieldID}
	default:
		ref = &FieldRef{FieldID: t.Field.ID}
	}

	if types.IsA(t.Field.BaseType, semtype.Temporal) {
		unit := t.Unit
		if unit == "" {
			unit = DefaultTemporalUnit
		}
		ref = &DatetimeField{Field: ref, Unit: unit}
	}
	return ref
}
