// Package catalog provides a read-only view over database schema metadata:
// tables, fields and the foreign-key edges between them. Dashboard
// generation only ever reads from the catalog; implementations must return
// a consistent snapshot for the duration of a single run.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/leapstack-labs/leapdash/internal/semtype"
)

// ErrNotFound is returned when a table or field does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Field is a column of a table together with its semantic classification.
type Field struct {
	ID          int64
	TableID     int64
	Name        string // internal name, as stored in the database
	DisplayName string
	BaseType    semtype.Type
	SpecialType semtype.Type // "" when no special type was detected
	// FKTargetFieldID is the primary-key field this field points at, when
	// the field is a foreign key.
	FKTargetFieldID *int64
}

// Table is a database table together with its semantic entity type.
// Link is a transient annotation: when a table was reached from a root
// table through a foreign key, Link is the id of that FK field on the
// root. It is only set on copies produced by LinkedTables.
type Table struct {
	ID          int64
	DatabaseID  int64
	Name        string
	DisplayName string
	EntityType  semtype.Type
	Link        *int64
}

// Catalog is the minimal metadata access the generator needs.
type Catalog interface {
	// Table returns the table with the given id.
	Table(ctx context.Context, id int64) (*Table, error)
	// Field returns the field with the given id.
	Field(ctx context.Context, id int64) (*Field, error)
	// FieldsOf returns all fields of a table.
	FieldsOf(ctx context.Context, tableID int64) ([]*Field, error)
}

// NumericKey reports whether f is a numeric key: a Number-typed field that
// is a PK or FK, or whose internal name is "id". Numeric keys are never
// dimension candidates.
func NumericKey(types *semtype.Registry, f *Field) bool {
	if !types.IsA(f.BaseType, semtype.Number) {
		return false
	}
	if types.IsA(f.SpecialType, semtype.PK) || types.IsA(f.SpecialType, semtype.FK) {
		return true
	}
	return strings.EqualFold(f.Name, "id")
}

// LinkedTables returns, for every FK field on root, the target field's
// owning table annotated with Link = the FK field id. Two foreign keys to
// the same table yield two distinct entries.
func LinkedTables(ctx context.Context, c Catalog, root *Table) ([]*Table, error) {
	fields, err := c.FieldsOf(ctx, root.ID)
	if err != nil {
		return nil, err
	}

	var linked []*Table
	for _, f := range fields {
		if f.FKTargetFieldID == nil {
			continue
		}
		target, err := c.Field(ctx, *f.FKTargetFieldID)
		if err != nil {
			return nil, err
		}
		table, err := c.Table(ctx, target.TableID)
		if err != nil {
			return nil, err
		}
		annotated := *table
		link := f.ID
		annotated.Link = &link
		linked = append(linked, &annotated)
	}
	return linked, nil
}

// LinkOnly reports whether every field of the given set is a PK or FK.
// Tables that hold nothing but keys (pure join tables) carry no
// information worth charting, so their fields never become candidates.
// A field with no special type counts as non-matching. An empty field set
// returns true, mirroring the behavior of an all-rows-match filter query
// that finds no rows.
func LinkOnly(types *semtype.Registry, fields []*Field) bool {
	for _, f := range fields {
		if !types.IsA(f.SpecialType, semtype.PK) && !types.IsA(f.SpecialType, semtype.FK) {
			return false
		}
	}
	return true
}
