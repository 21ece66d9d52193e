package core

import (
	"fmt"
	"time"

	"github.com/coregx/verso/internal/util"
	"github.com/spf13/cast"
)

// Row is one in-memory record of a single-table model: a mapping from field
// name to value.
type Row struct {
	model *Model
	data  map[string]any
}

// NewRow builds a row from assignment expressions (field = value) and
// Values maps. Every name must be a field of model.
//
// Example:
//
//	row, err := verso.NewRow(User, User.F("name").Assign("Amy"), verso.Values{"email": "a@x.io"})
func NewRow(model *Model, conds ...Condition) (*Row, error) {
	if model == nil {
		return nil, ErrNilModel
	}
	if !model.single {
		return nil, fmt.Errorf("%w: rows belong to single models", ErrComposedModel)
	}

	row := &Row{model: model, data: make(map[string]any)}
	for _, c := range conds {
		switch c := c.(type) {
		case *Expr:
			f, ok := c.left.(*Field)
			if !ok || c.op != OpEQ {
				return nil, compileErrorf("row value must be a field assignment, got %s expression", c.op)
			}
			if f.model != model {
				return nil, fmt.Errorf("%w: %s on %s", ErrForeignField, f, model.name)
			}
			row.data[f.name] = c.right
		case Values:
			for k, v := range c {
				if !model.HasField(k) {
					return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, model.table, k)
				}
				row.data[k] = v
			}
		case nil:
		default:
			return nil, fmt.Errorf("unsupported condition %T", c)
		}
	}
	return row, nil
}

// newRowFromData wraps data without validation; used by the materializer.
func newRowFromData(model *Model, data map[string]any) *Row {
	return &Row{model: model, data: data}
}

// Model returns the row's model.
func (r *Row) Model() *Model { return r.model }

// Get returns the value stored for name, nil when absent.
func (r *Row) Get(name string) any { return r.data[name] }

// Has reports whether a value is stored for name.
func (r *Row) Has(name string) bool {
	_, ok := r.data[name]
	return ok
}

// Set stores v for the field named name.
func (r *Row) Set(name string, v any) error {
	if !r.model.HasField(name) {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, r.model.table, name)
	}
	r.data[name] = v
	return nil
}

// Data returns a copy of the row's values.
func (r *Row) Data() map[string]any {
	out := make(map[string]any, len(r.data))
	for k, v := range r.data {
		out[k] = v
	}
	return out
}

// ID returns the primary key value.
func (r *Row) ID() any { return r.data[r.model.pk.name] }

// Int64 reads name as an int64, converting driver representations.
func (r *Row) Int64(name string) (int64, error) { return cast.ToInt64E(r.data[name]) }

// String reads name as a string; byte slices are converted.
func (r *Row) String(name string) (string, error) { return cast.ToStringE(r.data[name]) }

// Float64 reads name as a float64.
func (r *Row) Float64(name string) (float64, error) { return cast.ToFloat64E(r.data[name]) }

// Bool reads name as a bool.
func (r *Row) Bool(name string) (bool, error) { return cast.ToBoolE(r.data[name]) }

// Time reads name as a time.Time; DATETIME strings are parsed.
func (r *Row) Time(name string) (time.Time, error) { return cast.ToTimeE(r.data[name]) }

// Decode copies the row into the db-tagged fields of dest (pointer to struct).
func (r *Row) Decode(dest any) error {
	return util.MapToStruct(r.data, dest)
}

// RowFromStruct builds a row of model from the db-tagged fields of v.
// Columns that are not fields of model are rejected; a zero primary key is
// left out so the database can generate it.
func RowFromStruct(model *Model, v any) (*Row, error) {
	data, err := util.StructToMap(v)
	if err != nil {
		return nil, err
	}
	if model != nil && model.single {
		if pk := model.pk.name; util.IsZero(data[pk]) {
			delete(data, pk)
		}
	}
	return NewRow(model, Values(data))
}
