// Copyright (c) 2025 COREGX. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/coregx/verso/internal/cache"
)

// QueryType selects the statement generated from a query state.
type QueryType int

// Statement kinds.
const (
	QueryInsert QueryType = iota + 1
	QueryUpdate
	QuerySelect
	QueryDelete
)

// String returns the upper-case statement keyword.
func (qt QueryType) String() string {
	switch qt {
	case QueryInsert:
		return "INSERT"
	case QueryUpdate:
		return "UPDATE"
	case QuerySelect:
		return "SELECT"
	case QueryDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("QueryType(%d)", int(qt))
	}
}

// binaryOps maps operators compiled as "left<op>right".
var binaryOps = map[Operator]string{
	OpLT:   " < ",
	OpLE:   " <= ",
	OpGT:   " > ",
	OpGE:   " >= ",
	OpEQ:   " = ",
	OpNE:   " <> ",
	OpAdd:  " + ",
	OpAnd:  " and ",
	OpOr:   " or ",
	OpLike: " like ",
}

// precedence orders operators from loosest to tightest binding.
func precedence(op Operator) int {
	switch op {
	case OpOr:
		return 1
	case OpAnd:
		return 2
	case OpAdd:
		return 4
	default:
		return 3
	}
}

func associative(op Operator) bool {
	return op == OpAnd || op == OpOr || op == OpAdd
}

// dateTimeLayout is the literal format for time.Time operands.
const dateTimeLayout = "2006-01-02 15:04:05.999999"

// cachedSQL pairs a compiled fragment with the tree it was compiled from,
// so hash collisions are detected.
type cachedSQL struct {
	expr *Expr
	sql  string
}

// Compiler translates expression trees and query states into SQL text.
// It is stateless apart from a memo of compiled expressions keyed by their
// structural hash, and is safe for concurrent use.
type Compiler struct {
	escaper Escaper
	cache   *cache.LRU[uint64, cachedSQL]
}

// NewCompiler creates a compiler using escaper for literal text.
// capacity bounds the expression memo (non-positive means the default).
func NewCompiler(escaper Escaper, capacity int) *Compiler {
	return &Compiler{
		escaper: escaper,
		cache:   cache.NewWithCapacity[uint64, cachedSQL](capacity),
	}
}

// CacheStats returns statistics of the expression memo.
func (c *Compiler) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// ResetCache drops every memoized expression. Hit and miss counters are kept.
func (c *Compiler) ResetCache() {
	c.cache.Clear()
}

// CompileExpression translates e to SQL. Structurally identical trees
// compile to identical text; repeated compilations are served from the memo.
func (c *Compiler) CompileExpression(e *Expr) (string, error) {
	if e == nil {
		return "", compileErrorf("nil expression")
	}

	if hit, ok := c.cache.Get(e.hash); ok && hit.expr.Equal(e) {
		return hit.sql, nil
	}

	sql, err := c.compileNode(e)
	if err != nil {
		return "", err
	}

	c.cache.Set(e.hash, cachedSQL{expr: e, sql: sql})
	return sql, nil
}

func (c *Compiler) compileNode(e *Expr) (string, error) {
	left, err := c.compileChild(e, e.left, false)
	if err != nil {
		return "", err
	}

	if text, ok := binaryOps[e.op]; ok {
		right, err := c.compileChild(e, e.right, true)
		if err != nil {
			return "", err
		}
		return left + text + right, nil
	}

	switch e.op {
	case OpBetween:
		bounds, ok := e.right.(Tuple)
		if !ok || len(bounds) != 2 {
			return "", compileErrorf("between needs a (low, high) pair, got %v", e.right)
		}
		lo, err := c.compileOperand(bounds[0])
		if err != nil {
			return "", err
		}
		hi, err := c.compileOperand(bounds[1])
		if err != nil {
			return "", err
		}
		return left + " between " + lo + " and " + hi, nil

	case OpIn:
		values, ok := e.right.(Tuple)
		if !ok {
			return "", compileErrorf("in needs a value list, got %T", e.right)
		}
		if len(values) == 0 {
			return "", compileErrorf("in needs at least one value")
		}
		parts := make([]string, len(values))
		for i, v := range values {
			if parts[i], err = c.compileOperand(v); err != nil {
				return "", err
			}
		}
		return left + " in (" + strings.Join(parts, ", ") + ")", nil

	default:
		return "", compileErrorf("unsupported operator %s", e.op)
	}
}

// compileChild compiles an operand of parent, parenthesizing nested
// expressions that bind looser than their parent.
func (c *Compiler) compileChild(parent *Expr, operand any, right bool) (string, error) {
	child, ok := operand.(*Expr)
	if !ok || child == nil {
		return c.compileOperand(operand)
	}

	sql, err := c.CompileExpression(child)
	if err != nil {
		return "", err
	}

	pp, cp := precedence(parent.op), precedence(child.op)
	if cp < pp || (right && cp == pp && !associative(parent.op)) {
		return "(" + sql + ")", nil
	}
	return sql, nil
}

// compileOperand translates one side of an expression: fields to their
// full name, expressions recursively, text to a quoted escaped literal and
// numbers to their escaped decimal form.
//
//nolint:cyclop // One case per literal kind.
func (c *Compiler) compileOperand(v any) (string, error) {
	switch x := v.(type) {
	case *Field:
		if x == nil || x.model == nil {
			return "", compileErrorf("field %v is not bound to a model", x)
		}
		return x.fullName, nil
	case *Expr:
		return c.CompileExpression(x)
	case Tuple:
		return "", compileErrorf("value list is only valid with between and in")
	case nil:
		return "null", nil
	case string:
		return c.quote(x)
	case []byte:
		return c.quote(string(x))
	case time.Time:
		return c.quote(x.Format(dateTimeLayout))
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return c.escape(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return c.escape(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32:
		return c.escape(strconv.FormatFloat(rv.Float(), 'g', -1, 32))
	case reflect.Float64:
		return c.escape(strconv.FormatFloat(rv.Float(), 'g', -1, 64))
	case reflect.String:
		return c.quote(rv.String())
	default:
		return "", compileErrorf("unsupported operand type %T", v)
	}
}

func (c *Compiler) escape(s string) (string, error) {
	if c.escaper == nil {
		return "", compileErrorf("no escaper configured")
	}
	return c.escaper.Escape(s), nil
}

func (c *Compiler) quote(s string) (string, error) {
	escaped, err := c.escape(s)
	if err != nil {
		return "", err
	}
	return "'" + escaped + "'", nil
}

// CompileWhere renders the where-clause: empty for an empty list, else
// " where " followed by the expressions joined with " and ". Items binding
// looser than and are parenthesized.
func (c *Compiler) CompileWhere(where []*Expr) (string, error) {
	if len(where) == 0 {
		return "", nil
	}
	parts, err := c.compileList(where)
	if err != nil {
		return "", err
	}
	for i, e := range where {
		if precedence(e.op) < precedence(OpAnd) {
			parts[i] = "(" + parts[i] + ")"
		}
	}
	return " where " + strings.Join(parts, " and "), nil
}

// CompileSet renders the set-clause " set a, b". Every item must be an
// assignment with a field on the left.
func (c *Compiler) CompileSet(set []*Expr) (string, error) {
	if len(set) == 0 {
		return "", compileErrorf("empty set-list")
	}
	for _, e := range set {
		if e == nil {
			return "", compileErrorf("nil expression")
		}
		if _, ok := e.left.(*Field); !ok || e.op != OpEQ {
			return "", compileErrorf("set-list item must be a field assignment, got %s expression", e.op)
		}
	}
	parts, err := c.compileList(set)
	if err != nil {
		return "", err
	}
	return " set " + strings.Join(parts, ", "), nil
}

// CompileOrderBy renders " order by <field>" with an optional " desc ".
func (c *Compiler) CompileOrderBy(order *Order) (string, error) {
	if order == nil {
		return "", nil
	}
	if order.Field == nil || order.Field.model == nil {
		return "", compileErrorf("order by needs a bound field")
	}
	sql := " order by " + order.Field.fullName
	if order.Desc {
		sql += " desc "
	}
	return sql, nil
}

// CompileSelect renders the comma-separated select list.
func (c *Compiler) CompileSelect(fields []*Field) (string, error) {
	if len(fields) == 0 {
		return "", compileErrorf("empty select list")
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		if f == nil || f.model == nil {
			return "", compileErrorf("select list holds an unbound field")
		}
		names[i] = f.fullName
	}
	return strings.Join(names, ", "), nil
}

func (c *Compiler) compileList(exprs []*Expr) ([]string, error) {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		sql, err := c.CompileExpression(e)
		if err != nil {
			return nil, err
		}
		parts[i] = sql
	}
	return parts, nil
}

// GenSQL assembles one statement from state. from supplies the FROM
// clause; target, when non-nil, is the table written by insert, update and
// delete (multi-table deletes name a member of a composed from-model).
//
//	insert into <target> set <assignments>
//	update <target> set <assignments><where>
//	select <fields> from <from><where><orderby>
//	delete <target> from <from><where>
func (c *Compiler) GenSQL(from *Model, state *State, qt QueryType, target *Model) (string, error) {
	if from == nil {
		return "", ErrNilModel
	}
	if target == nil {
		target = from
	}

	switch qt {
	case QueryInsert:
		set, err := c.CompileSet(state.Set)
		if err != nil {
			return "", err
		}
		return "insert into " + target.table + set, nil

	case QueryUpdate:
		set, err := c.CompileSet(state.Set)
		if err != nil {
			return "", err
		}
		where, err := c.CompileWhere(state.Where)
		if err != nil {
			return "", err
		}
		return "update " + target.table + set + where, nil

	case QuerySelect:
		fields, err := c.CompileSelect(state.Select)
		if err != nil {
			return "", err
		}
		where, err := c.CompileWhere(state.Where)
		if err != nil {
			return "", err
		}
		orderBy, err := c.CompileOrderBy(state.OrderBy)
		if err != nil {
			return "", err
		}
		return "select " + fields + " from " + from.table + where + orderBy, nil

	case QueryDelete:
		where, err := c.CompileWhere(state.Where)
		if err != nil {
			return "", err
		}
		return "delete " + target.table + " from " + from.table + where, nil

	default:
		return "", compileErrorf("unsupported query type %s", qt)
	}
}
