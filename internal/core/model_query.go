// Package core provides the expression algebra, model registry, SQL compiler
// and query execution pipeline.
package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/coregx/verso/internal/util"
)

// Order is the single sort slot of a query.
type Order struct {
	Field *Field
	Desc  bool
}

// State is the in-progress statement of a ModelQuery.
type State struct {
	Where   []*Expr
	Set     []*Expr
	OrderBy *Order
	Select  []*Field
}

func (s State) clone() State {
	out := State{
		Where:  append([]*Expr(nil), s.Where...),
		Set:    append([]*Expr(nil), s.Set...),
		Select: append([]*Field(nil), s.Select...),
	}
	if s.OrderBy != nil {
		o := *s.OrderBy
		out.OrderBy = &o
	}
	return out
}

// ModelQuery builds and runs one statement against a model.
// Builder methods return the same query for chaining; every terminal call
// (Insert, Create, Update, Delete, Select) runs one statement and then
// clears the state, whether or not the statement succeeded.
//
// A ModelQuery is owned by its caller and must not be shared between
// goroutines; start a new one with DB.Model for each chain.
type ModelQuery struct {
	db    *DB
	model *Model
	state State
	err   error
}

// Model creates a new ModelQuery for the given model.
//
// Example:
//
//	res, err := db.Model(User).Where(User.F("id").Gt(3)).Select(ctx)
func (db *DB) Model(m *Model) *ModelQuery {
	mq := &ModelQuery{db: db, model: m}
	if m == nil {
		mq.err = ErrNilModel
	}
	return mq
}

// Where replaces the where-list. Conditions are expressions or Values;
// for single models each Values entry becomes "field = value" after the
// expressions, composed models ignore Values.
func (mq *ModelQuery) Where(conds ...Condition) *ModelQuery {
	exprs, err := mq.toExprs(conds, false)
	if err != nil {
		mq.fail(err)
		return mq
	}
	mq.state.Where = exprs
	return mq
}

// At restricts the query to the row with primary key id.
func (mq *ModelQuery) At(id any) *ModelQuery {
	if mq.model != nil && !mq.model.single {
		mq.fail(fmt.Errorf("%w: At needs a single primary key", ErrComposedModel))
		return mq
	}
	if mq.model == nil {
		return mq
	}
	return mq.Where(Eq(mq.model.pk, id))
}

// OrderBy sets the sort field. Only one field is kept: a later call
// replaces an earlier one.
func (mq *ModelQuery) OrderBy(f *Field, desc bool) *ModelQuery {
	if mq.model != nil && !mq.model.owns(f) {
		mq.fail(fmt.Errorf("%w: %v on %s", ErrForeignField, f, mq.model.name))
		return mq
	}
	mq.state.OrderBy = &Order{Field: f, Desc: desc}
	return mq
}

// State returns a copy of the current statement state.
func (mq *ModelQuery) State() State {
	return mq.state.clone()
}

// Err returns the first error recorded by a builder method.
func (mq *ModelQuery) Err() error {
	return mq.err
}

func (mq *ModelQuery) fail(err error) {
	if mq.err == nil {
		mq.err = err
	}
}

func (mq *ModelQuery) reset() {
	mq.state = State{}
	mq.err = nil
	if mq.model == nil {
		mq.err = ErrNilModel
	}
}

// setSet replaces the set-list. A Values key naming the primary key never
// becomes an assignment.
func (mq *ModelQuery) setSet(conds []Condition) {
	exprs, err := mq.toExprs(conds, true)
	if err != nil {
		mq.fail(err)
		return
	}
	mq.state.Set = exprs
}

// setSelect fixes the select list. A non-empty list gets the primary
// key(s) appended and is deduplicated keeping first occurrences; an empty
// list selects every declared field.
func (mq *ModelQuery) setSelect(fields []*Field) {
	if mq.model == nil {
		return
	}
	if len(fields) == 0 {
		mq.state.Select = mq.model.Fields()
		return
	}

	seen := make(map[*Field]bool, len(fields)+len(mq.model.pks))
	list := make([]*Field, 0, len(fields)+len(mq.model.pks))
	for _, f := range append(append([]*Field(nil), fields...), mq.model.pks...) {
		if !mq.model.owns(f) {
			mq.fail(fmt.Errorf("%w: %v on %s", ErrForeignField, f, mq.model.name))
			return
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		list = append(list, f)
	}
	mq.state.Select = list
}

// toExprs converts conditions to expressions: the expressions first in
// argument order, then the Values entries sorted by field name.
func (mq *ModelQuery) toExprs(conds []Condition, set bool) ([]*Expr, error) {
	if mq.model == nil {
		return nil, ErrNilModel
	}

	var exprs []*Expr
	var values []Values
	for _, c := range conds {
		switch c := c.(type) {
		case nil:
		case *Expr:
			if c == nil {
				return nil, compileErrorf("nil expression")
			}
			if err := mq.checkFields(c); err != nil {
				return nil, err
			}
			exprs = append(exprs, c)
		case Values:
			values = append(values, c)
		default:
			return nil, fmt.Errorf("unsupported condition %T", c)
		}
	}

	if !mq.model.single {
		return exprs, nil
	}

	for _, v := range values {
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			f, ok := mq.model.byName[k]
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, mq.model.table, k)
			}
			if set && f.primaryKey {
				continue
			}
			exprs = append(exprs, Eq(f, v[k]))
		}
	}
	return exprs, nil
}

// checkFields verifies every field in e belongs to the query's model.
func (mq *ModelQuery) checkFields(e *Expr) error {
	for _, operand := range []any{e.left, e.right} {
		switch x := operand.(type) {
		case *Field:
			if !mq.model.owns(x) {
				return fmt.Errorf("%w: %v on %s", ErrForeignField, x, mq.model.name)
			}
		case *Expr:
			if x == nil {
				return compileErrorf("nil expression")
			}
			if err := mq.checkFields(x); err != nil {
				return err
			}
		}
	}
	return nil
}

// execute compiles the current state and runs it.
func (mq *ModelQuery) execute(ctx context.Context, qt QueryType, target *Model) (Cursor, error) {
	if mq.err != nil {
		return nil, mq.err
	}

	sql, err := mq.db.compiler.GenSQL(mq.model, &mq.state, qt, target)
	if err != nil {
		mq.db.logger.Debug("statement compile failed",
			"model", mq.model.name,
			"operation", qt.String(),
			"error", err,
		)
		return nil, err
	}

	return mq.db.run(ctx, sql)
}

// Insert adds one row built from conds and returns the generated primary
// key. ok is false when no row was inserted.
func (mq *ModelQuery) Insert(ctx context.Context, conds ...Condition) (id int64, ok bool, err error) {
	defer mq.reset()

	if mq.model != nil && !mq.model.single {
		return 0, false, fmt.Errorf("%w: insert", ErrComposedModel)
	}
	mq.setSet(conds)

	cur, err := mq.execute(ctx, QueryInsert, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = cur.Close() }()

	if cur.RowsAffected() < 1 {
		return 0, false, nil
	}
	id, _ = cur.LastInsertID()
	return id, true, nil
}

// Create inserts one row and returns it with its generated primary key.
// It returns nil, nil when no row was inserted.
//
// Example:
//
//	amy, err := db.Model(User).Create(ctx, verso.Values{"name": "Amy"})
func (mq *ModelQuery) Create(ctx context.Context, conds ...Condition) (*Row, error) {
	model := mq.model

	// Values are captured before Insert clears the state.
	mq.setSet(conds)
	data := assignedValues(mq.state.Set)

	id, ok, err := mq.Insert(ctx, conds...)
	if err != nil || !ok {
		return nil, err
	}

	data[model.pk.name] = id
	return newRowFromData(model, data), nil
}

// CreateFrom inserts the db-tagged fields of src (pointer to struct) and
// stores the generated primary key back into src.
func (mq *ModelQuery) CreateFrom(ctx context.Context, src any) (*Row, error) {
	row, err := RowFromStruct(mq.model, src)
	if err != nil {
		mq.reset()
		return nil, WrapError(err, fmt.Sprintf("create %s from %T", mq.model.Name(), src))
	}

	created, err := mq.Create(ctx, Values(row.data))
	if err != nil || created == nil {
		return created, err
	}

	if err := util.SetField(src, mq.model.pk.name, created.ID()); err != nil {
		return created, WrapError(err, "store generated "+mq.model.pk.String())
	}
	return created, nil
}

// assignedValues collects the literal right sides of assignments.
func assignedValues(set []*Expr) map[string]any {
	data := make(map[string]any, len(set)+1)
	for _, e := range set {
		f, ok := e.left.(*Field)
		if !ok {
			continue
		}
		switch e.right.(type) {
		case *Field, *Expr:
			continue
		}
		data[f.name] = e.right
	}
	return data
}

// Update applies the assignments in conds to the rows matching the
// where-list and returns the number of matched rows.
//
// Example:
//
//	n, err := db.Model(User).At(4).Update(ctx, verso.Values{"name": "B"})
func (mq *ModelQuery) Update(ctx context.Context, conds ...Condition) (int64, error) {
	defer mq.reset()

	mq.setSet(conds)

	cur, err := mq.execute(ctx, QueryUpdate, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = cur.Close() }()

	return cur.RowsAffected(), nil
}

// Delete removes the rows matching the where-list and returns their number.
func (mq *ModelQuery) Delete(ctx context.Context) (int64, error) {
	if mq.model != nil && !mq.model.single {
		mq.reset()
		return 0, fmt.Errorf("%w: use DeleteFrom to name the table", ErrComposedModel)
	}
	return mq.DeleteFrom(ctx, mq.model)
}

// DeleteFrom removes rows of target, which must be the query's model or a
// member of it, selected through the query's model.
//
// Example:
//
//	db.Model(UserPost).Where(Post.F("user_id").References(), User.F("name").Eq("Amy")).DeleteFrom(ctx, Post)
func (mq *ModelQuery) DeleteFrom(ctx context.Context, target *Model) (int64, error) {
	defer mq.reset()

	if mq.model != nil && target != mq.model && mq.model.memberIndex(target) < 0 {
		return 0, fmt.Errorf("%w: %v is not part of %s", ErrInvalidJoin, target, mq.model.name)
	}

	cur, err := mq.execute(ctx, QueryDelete, target)
	if err != nil {
		return 0, err
	}
	defer func() { _ = cur.Close() }()

	return cur.RowsAffected(), nil
}

// Select runs a select over fields (every declared field when none are
// given) and returns a lazy result. The primary key(s) are always
// selected.
func (mq *ModelQuery) Select(ctx context.Context, fields ...*Field) (*SelectResult, error) {
	defer mq.reset()

	mq.setSelect(fields)
	selected := mq.state.Select

	cur, err := mq.execute(ctx, QuerySelect, nil)
	if err != nil {
		return nil, err
	}

	return newSelectResult(mq.model, cur, selected), nil
}

// run executes sql, logging and wrapping executor failures.
func (db *DB) run(ctx context.Context, sql string) (Cursor, error) {
	if db.executor == nil {
		return nil, ErrNoExecutor
	}

	start := time.Now()
	cur, err := db.executor.Execute(ctx, sql)
	if err != nil {
		db.logger.Debug("statement failed",
			"sql", sql,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, &ExecutionError{SQL: sql, Err: err}
	}
	return cur, nil
}
