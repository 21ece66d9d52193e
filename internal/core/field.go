package core

import (
	"fmt"
	"sync/atomic"
)

// fieldSeq hands out process-unique field ids used by the structural hash.
var fieldSeq atomic.Uint64

// Field is a handle to one table column. Taken from a model it is a DSL
// token for building expressions; applied to a Row it reads and writes the
// row's data.
//
// Fields are declared with Column, PrimaryKey or ForeignKey and bound to
// their model by Register. A field can be bound to exactly one model.
type Field struct {
	id         uint64
	name       string
	model      *Model
	fullName   string
	primaryKey bool
	foreignKey bool
	pointsTo   *Field
}

func newField(name string) *Field {
	return &Field{id: fieldSeq.Add(1), name: name}
}

// Column declares a plain column.
func Column(name string) *Field {
	return newField(name)
}

// PrimaryKey declares the primary key column.
func PrimaryKey(name string) *Field {
	f := newField(name)
	f.primaryKey = true
	return f
}

// ForeignKey declares a column referencing another model's field.
//
// Example:
//
//	Post := verso.MustRegister("Post",
//	    verso.Column("title"),
//	    verso.ForeignKey("user_id", User.PrimaryKey()),
//	)
func ForeignKey(name string, pointsTo *Field) *Field {
	f := newField(name)
	f.foreignKey = true
	f.pointsTo = pointsTo
	return f
}

// bind attaches the field to its owning model.
func (f *Field) bind(m *Model) {
	f.model = m
	f.fullName = m.table + "." + f.name
}

// Name returns the column name.
func (f *Field) Name() string { return f.name }

// Model returns the owning model, nil before registration.
func (f *Field) Model() *Model { return f.model }

// FullName returns "table.column".
func (f *Field) FullName() string { return f.fullName }

// IsPrimaryKey reports whether the field is its model's primary key.
func (f *Field) IsPrimaryKey() bool { return f.primaryKey }

// IsForeignKey reports whether the field references another field.
func (f *Field) IsForeignKey() bool { return f.foreignKey }

// PointsTo returns the referenced field of a foreign key.
func (f *Field) PointsTo() *Field { return f.pointsTo }

// References returns the join predicate "fk = target" of a foreign key, or
// nil for other fields.
func (f *Field) References() *Expr {
	if !f.foreignKey || f.pointsTo == nil {
		return nil
	}
	return Eq(f, f.pointsTo)
}

// String returns the full name, or the bare name before registration.
func (f *Field) String() string {
	if f == nil {
		return "<nil>"
	}
	if f.fullName != "" {
		return f.fullName
	}
	return f.name
}

// Get reads the field's value from row. Missing values read as nil.
func (f *Field) Get(row *Row) any {
	return row.data[f.name]
}

// Set writes v into row. The row must belong to the field's model.
func (f *Field) Set(row *Row, v any) error {
	if row.model != f.model {
		return fmt.Errorf("%w: %s on %s row", ErrForeignField, f, row.model.Name())
	}
	row.data[f.name] = v
	return nil
}

// Eq builds "f = v".
func (f *Field) Eq(v any) *Expr { return Eq(f, v) }

// Ne builds "f <> v".
func (f *Field) Ne(v any) *Expr { return Ne(f, v) }

// Lt builds "f < v".
func (f *Field) Lt(v any) *Expr { return Lt(f, v) }

// Le builds "f <= v".
func (f *Field) Le(v any) *Expr { return Le(f, v) }

// Gt builds "f > v".
func (f *Field) Gt(v any) *Expr { return Gt(f, v) }

// Ge builds "f >= v".
func (f *Field) Ge(v any) *Expr { return Ge(f, v) }

// Add builds "f + v", e.g. for "count = count + 1" assignments.
func (f *Field) Add(v any) *Expr { return Add(f, v) }

// Like builds "f like pattern".
func (f *Field) Like(pattern string) *Expr { return Like(f, pattern) }

// Between builds "f between lo and hi".
func (f *Field) Between(lo, hi any) *Expr { return Between(f, lo, hi) }

// In builds "f in (values...)".
func (f *Field) In(values ...any) *Expr { return In(f, values...) }

// Assign builds the assignment "f = v".
func (f *Field) Assign(v any) *Expr { return Assign(f, v) }
