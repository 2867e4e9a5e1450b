package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leapdash/internal/semtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteCatalog_Table(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cat := NewSQLiteCatalog()
	cat.OpenDB(db)

	mock.ExpectQuery(`SELECT id, database_id, name, display_name, entity_type FROM metadata_tables`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "database_id", "name", "display_name", "entity_type"}).
			AddRow(1, 7, "orders", "Orders", "TransactionTable"))

	table, err := cat.Table(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "orders", table.Name)
	assert.Equal(t, int64(7), table.DatabaseID)
	assert.Equal(t, semtype.TransactionTable, table.EntityType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteCatalog_FieldsOf(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cat := NewSQLiteCatalog()
	cat.OpenDB(db)

	rows := sqlmock.NewRows([]string{"id", "table_id", "name", "display_name", "base_type", "special_type", "fk_target_field_id"}).
		AddRow(10, 1, "id", "", "Integer", "PK", nil).
		AddRow(11, 1, "customer_id", "", "Integer", "FK", 20).
		AddRow(12, 1, "created_at", "Created At", "DateTime", nil, nil)

	mock.ExpectQuery(`SELECT id, table_id, name, display_name, base_type, special_type, fk_target_field_id`).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	fields, err := cat.FieldsOf(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, fields, 3)

	assert.Equal(t, semtype.PK, fields[0].SpecialType)
	require.NotNil(t, fields[1].FKTargetFieldID)
	assert.Equal(t, int64(20), *fields[1].FKTargetFieldID)
	assert.Equal(t, semtype.Type(""), fields[2].SpecialType)
	assert.Nil(t, fields[2].FKTargetFieldID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteCatalog_FieldNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cat := NewSQLiteCatalog()
	cat.OpenDB(db)

	mock.ExpectQuery(`SELECT id, table_id, name, display_name, base_type, special_type, fk_target_field_id`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_id", "name", "display_name", "base_type", "special_type", "fk_target_field_id"}))

	_, err = cat.Field(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
