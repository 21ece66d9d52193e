package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/coregx/verso/internal/security"
	"github.com/coregx/verso/internal/util"
)

// Registry records registered models by table name.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	models    map[string]*Model
	validator *security.Validator
}

// NewRegistry creates an empty registry. Identifiers are validated in
// strict mode: generated statements do not quote them.
func NewRegistry() *Registry {
	return &Registry{
		models:    make(map[string]*Model),
		validator: security.NewValidator(security.WithStrict(true)),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by the
// package-level Register functions.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register declares a single-table model on the default registry.
func Register(name string, fields ...*Field) (*Model, error) {
	return defaultRegistry.Register(name, fields...)
}

// MustRegister is like Register but panics on error.
func MustRegister(name string, fields ...*Field) *Model {
	m, err := defaultRegistry.Register(name, fields...)
	if err != nil {
		panic(err)
	}
	return m
}

// RegisterStruct declares a model from a struct type on the default registry.
func RegisterStruct(v any) (*Model, error) {
	return defaultRegistry.RegisterStruct(v)
}

// Lookup finds a model by table name on the default registry.
func Lookup(table string) (*Model, bool) {
	return defaultRegistry.Lookup(table)
}

// Register declares a single-table model. The table name is the lowercased
// model name. When no field is a primary key, an "id" primary key is
// synthesized and placed first. Fields are bound only when the whole
// declaration is valid.
//
//nolint:cyclop // Sequential validation steps.
func (r *Registry) Register(name string, fields ...*Field) (*Model, error) {
	table := tableName(name)
	if err := r.validator.ValidateIdentifier(table); err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}

	m := &Model{
		name:   name,
		table:  table,
		byName: make(map[string]*Field, len(fields)+1),
		byFull: make(map[string]*Field, len(fields)+1),
		single: true,
	}

	var pk *Field
	declared := make([]*Field, 0, len(fields))
	for _, f := range fields {
		if f == nil {
			return nil, fmt.Errorf("model %s: nil field", name)
		}
		if err := r.validator.ValidateIdentifier(f.name); err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		if _, dup := m.byName[f.name]; dup {
			return nil, fmt.Errorf("model %s: %w: %s", name, ErrDuplicateField, f.name)
		}
		if f.foreignKey && f.pointsTo == nil {
			return nil, fmt.Errorf("model %s: %w: %s", name, ErrInvalidForeignKey, f.name)
		}
		if f.primaryKey {
			if pk != nil {
				return nil, fmt.Errorf("model %s: %w: %s and %s", name, ErrMultiplePrimaryKeys, pk.name, f.name)
			}
			pk = f
		}
		m.byName[f.name] = f
		declared = append(declared, f)
	}

	if pk == nil {
		if _, taken := m.byName["id"]; taken {
			return nil, fmt.Errorf("model %s: %w: id is declared but is not the primary key", name, ErrDuplicateField)
		}
		pk = PrimaryKey("id")
		m.byName[pk.name] = pk
		declared = append([]*Field{pk}, declared...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[table]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateModel, table)
	}

	// Fields are bound under the lock only, so this is the single check.
	for _, f := range declared {
		if f.model != nil {
			return nil, fmt.Errorf("model %s: %w: %s", name, ErrFieldBound, f)
		}
	}
	for _, f := range declared {
		f.bind(m)
		m.byFull[f.fullName] = f
	}
	m.fields = declared
	m.pk = pk
	m.pks = []*Field{pk}
	r.models[table] = m

	return m, nil
}

// RegisterStruct declares a model from the db tags of a struct type:
// db:"col", db:"col,pk", db:"col,fk=table.col" and db:"-". The model name
// is the struct name, or the result of a TableName() method.
// Foreign key targets must already be registered.
func (r *Registry) RegisterStruct(v any) (*Model, error) {
	columns, err := util.StructColumns(v)
	if err != nil {
		return nil, err
	}

	name := util.TypeName(v)
	if tn, ok := v.(interface{ TableName() string }); ok {
		name = tn.TableName()
	}

	fields := make([]*Field, 0, len(columns))
	for _, col := range columns {
		switch {
		case col.PrimaryKey:
			fields = append(fields, PrimaryKey(col.Column))
		case col.References != "":
			target, err := r.resolveReference(col.References)
			if err != nil {
				return nil, fmt.Errorf("model %s: field %s: %w", name, col.Column, err)
			}
			fields = append(fields, ForeignKey(col.Column, target))
		default:
			fields = append(fields, Column(col.Column))
		}
	}

	return r.Register(name, fields...)
}

// resolveReference finds the field named by "table.column".
func (r *Registry) resolveReference(ref string) (*Field, error) {
	table, column, ok := strings.Cut(ref, ".")
	if !ok {
		return nil, fmt.Errorf("%w: reference %q is not table.column", ErrInvalidForeignKey, ref)
	}
	m, found := r.Lookup(table)
	if !found {
		return nil, fmt.Errorf("%w: table %q is not registered", ErrInvalidForeignKey, table)
	}
	f, found := m.Field(column)
	if !found {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrInvalidForeignKey, table, column)
	}
	return f, nil
}

// Lookup finds a model by table name.
func (r *Registry) Lookup(table string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[table]
	return m, ok
}

// Models returns all registered models sorted by table name.
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].table < out[j].table })
	return out
}

// Join builds a composed model over two or more distinct single-table
// models. Its FROM clause lists the member tables, its primary keys are the
// member primary keys, and its fields are all member fields.
//
// Example:
//
//	UserPost := verso.MustJoin(User, Post)
//	db.Model(UserPost).Where(Post.F("user_id").References()).Select(ctx)
func Join(models ...*Model) (*Model, error) {
	if len(models) < 2 {
		return nil, fmt.Errorf("%w: need at least two models, got %d", ErrInvalidJoin, len(models))
	}

	names := make([]string, 0, len(models))
	tables := make([]string, 0, len(models))
	seen := make(map[*Model]bool, len(models))

	composed := &Model{
		byName: make(map[string]*Field),
		byFull: make(map[string]*Field),
		single: false,
		models: make([]*Model, 0, len(models)),
	}

	for _, m := range models {
		switch {
		case m == nil:
			return nil, fmt.Errorf("%w: %w", ErrInvalidJoin, ErrNilModel)
		case !m.single:
			return nil, fmt.Errorf("%w: %s is already composed", ErrInvalidJoin, m.name)
		case seen[m]:
			return nil, fmt.Errorf("%w: %s listed twice", ErrInvalidJoin, m.name)
		}
		seen[m] = true

		names = append(names, m.name)
		tables = append(tables, m.table)
		composed.models = append(composed.models, m)
		composed.pks = append(composed.pks, m.pk)
		for _, f := range m.fields {
			composed.fields = append(composed.fields, f)
			composed.byFull[f.fullName] = f
			if _, taken := composed.byName[f.name]; !taken {
				composed.byName[f.name] = f
			}
		}
	}

	composed.name = strings.Join(names, "+")
	composed.table = strings.Join(tables, ", ")
	return composed, nil
}

// MustJoin is like Join but panics on error.
func MustJoin(models ...*Model) *Model {
	m, err := Join(models...)
	if err != nil {
		panic(err)
	}
	return m
}
