package core

import (
	"fmt"
	"strings"
)

// Model is an immutable schema descriptor: one table with its fields and
// primary key, or a composed model joining several single-table models.
// Models are created by Register, RegisterStruct and Join.
type Model struct {
	name   string
	table  string
	fields []*Field
	byName map[string]*Field
	byFull map[string]*Field
	pk     *Field
	pks    []*Field
	single bool
	models []*Model
}

// Name returns the declared model name.
func (m *Model) Name() string { return m.name }

// Table returns the table name. For composed models this is the
// comma-separated list of member tables.
func (m *Model) Table() string { return m.table }

// Single reports whether m maps one table.
func (m *Model) Single() bool { return m.single }

// Models returns the members of a composed model in declaration order, or
// m itself for a single model.
func (m *Model) Models() []*Model {
	if m.single {
		return []*Model{m}
	}
	out := make([]*Model, len(m.models))
	copy(out, m.models)
	return out
}

// Fields returns all fields in declaration order (the synthesized "id"
// primary key first). Composed models list member fields member by member.
func (m *Model) Fields() []*Field {
	out := make([]*Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Field returns the field named name. Composed models also accept
// "table.column" and resolve bare names to the first member declaring them.
func (m *Model) Field(name string) (*Field, bool) {
	if f, ok := m.byName[name]; ok {
		return f, true
	}
	f, ok := m.byFull[name]
	return f, ok
}

// HasField reports whether name resolves to a field of m.
func (m *Model) HasField(name string) bool {
	_, ok := m.Field(name)
	return ok
}

// F returns the named field and panics if it does not exist.
// Intended for building expressions against models declared at init time.
func (m *Model) F(name string) *Field {
	f, ok := m.Field(name)
	if !ok {
		panic(fmt.Sprintf("verso: model %s has no field %q", m.name, name))
	}
	return f
}

// PrimaryKey returns the primary key of a single model, nil for composed ones.
func (m *Model) PrimaryKey() *Field { return m.pk }

// PrimaryKeys returns the primary key of a single model, or the member
// primary keys of a composed model in member order.
func (m *Model) PrimaryKeys() []*Field {
	out := make([]*Field, len(m.pks))
	copy(out, m.pks)
	return out
}

// owns reports whether f belongs to m or to one of its members.
func (m *Model) owns(f *Field) bool {
	if f == nil || f.model == nil {
		return false
	}
	if m.single {
		return f.model == m
	}
	for _, member := range m.models {
		if f.model == member {
			return true
		}
	}
	return false
}

// memberIndex returns the position of model in m's member list.
func (m *Model) memberIndex(model *Model) int {
	for i, member := range m.models {
		if member == model {
			return i
		}
	}
	return -1
}

// String returns the model name.
func (m *Model) String() string { return m.name }

// tableName derives the table name from a model name.
func tableName(name string) string {
	return strings.ToLower(name)
}
