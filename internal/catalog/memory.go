package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-memory Catalog. It is used by tests and by callers that
// assemble schema metadata themselves instead of reading it from a
// metadata database.
type Memory struct {
	mu     sync.RWMutex
	tables map[int64]*Table
	fields map[int64]*Field
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		tables: make(map[int64]*Table),
		fields: make(map[int64]*Field),
	}
}

// AddTable registers a table.
func (m *Memory) AddTable(t *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[t.ID] = t
}

// AddField registers a field.
func (m *Memory) AddField(f *Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[f.ID] = f
}

// Table returns the table with the given id.
func (m *Memory) Table(_ context.Context, id int64) (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, fmt.Errorf("table %d: %w", id, ErrNotFound)
	}
	return t, nil
}

// Field returns the field with the given id.
func (m *Memory) Field(_ context.Context, id int64) (*Field, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fields[id]
	if !ok {
		return nil, fmt.Errorf("field %d: %w", id, ErrNotFound)
	}
	return f, nil
}

// FieldsOf returns all fields of a table, ordered by field id.
func (m *Memory) FieldsOf(_ context.Context, tableID int64) ([]*Field, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var fields []*Field
	for _, f := range m.fields {
		if f.TableID == tableID {
			fields = append(fields, f)
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].ID < fields[j].ID })
	return fields, nil
}

// Tables returns all registered tables, ordered by table id.
func (m *Memory) Tables(_ context.Context) ([]*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tables := make([]*Table, 0, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].ID < tables[j].ID })
	return tables, nil
}
