package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/leapstack-labs/leapdash/internal/semtype"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

//go:embed schema.sql
var schemaSQL string

// SQLiteCatalog implements Catalog on top of a SQLite metadata database.
// The generator only reads through it; writes happen out of band (imports,
// sync jobs, test seeding).
type SQLiteCatalog struct {
	db   *sql.DB
	path string
}

// NewSQLiteCatalog creates an unopened SQLite catalog.
func NewSQLiteCatalog() *SQLiteCatalog {
	return &SQLiteCatalog{}
}

// Open opens a connection to the metadata database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteCatalog) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open catalog database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping catalog database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// OpenDB wraps an existing database handle. The caller retains ownership
// of the handle; Close becomes a no-op.
func (s *SQLiteCatalog) OpenDB(db *sql.DB) {
	s.db = db
	s.path = ""
}

// Close closes the underlying connection when this catalog opened it.
func (s *SQLiteCatalog) Close() error {
	if s.db != nil && s.path != "" {
		return s.db.Close()
	}
	return nil
}

// InitSchema creates the metadata tables when they do not exist yet.
func (s *SQLiteCatalog) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("catalog database not opened")
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return nil
}

// Table returns the table with the given id.
func (s *SQLiteCatalog) Table(ctx context.Context, id int64) (*Table, error) {
	t := &Table{}
	var entityType string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, database_id, name, display_name, entity_type FROM metadata_tables WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.DatabaseID, &t.Name, &t.DisplayName, &entityType)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select table %d: %w", id, err)
	}
	t.EntityType = semtype.Type(entityType)
	return t, nil
}

// Field returns the field with the given id.
func (s *SQLiteCatalog) Field(ctx context.Context, id int64) (*Field, error) {
	f, err := scanField(s.db.QueryRowContext(ctx,
		`SELECT id, table_id, name, display_name, base_type, special_type, fk_target_field_id
		 FROM metadata_fields WHERE id = ?`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("field %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select field %d: %w", id, err)
	}
	return f, nil
}

// FieldsOf returns all fields of a table, ordered by field id.
func (s *SQLiteCatalog) FieldsOf(ctx context.Context, tableID int64) ([]*Field, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, table_id, name, display_name, base_type, special_type, fk_target_field_id
		 FROM metadata_fields WHERE table_id = ? ORDER BY id`,
		tableID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select fields of table %d: %w", tableID, err)
	}
	defer func() { _ = rows.Close() }()

	var fields []*Field
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fields of table %d: %w", tableID, err)
	}
	return fields, nil
}

// Tables returns all tables in the catalog, ordered by table id.
func (s *SQLiteCatalog) Tables(ctx context.Context) ([]*Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, database_id, name, display_name, entity_type FROM metadata_tables ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []*Table
	for rows.Next() {
		t := &Table{}
		var entityType string
		if err := rows.Scan(&t.ID, &t.DatabaseID, &t.Name, &t.DisplayName, &entityType); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		t.EntityType = semtype.Type(entityType)
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	return tables, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanField(row scanner) (*Field, error) {
	f := &Field{}
	var baseType string
	var specialType sql.NullString
	var fkTarget sql.NullInt64
	if err := row.Scan(&f.ID, &f.TableID, &f.Name, &f.DisplayName, &baseType, &specialType, &fkTarget); err != nil {
		return nil, err
	}
	f.BaseType = semtype.Type(baseType)
	if specialType.Valid {
		f.SpecialType = semtype.Type(specialType.String)
	}
	if fkTarget.Valid {
		id := fkTarget.Int64
		f.FKTargetFieldID = &id
	}
	return f, nil
}
