// Copyright (c) 2025 COREGX. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Operator identifies the operation of an expression node.
type Operator int

// Supported operators.
const (
	OpLT Operator = iota + 1
	OpLE
	OpGT
	OpGE
	OpEQ
	OpNE
	OpAdd
	OpAnd
	OpOr
	OpLike
	OpBetween
	OpIn
)

var operatorNames = map[Operator]string{
	OpLT:      "<",
	OpLE:      "<=",
	OpGT:      ">",
	OpGE:      ">=",
	OpEQ:      "=",
	OpNE:      "<>",
	OpAdd:     "+",
	OpAnd:     "and",
	OpOr:      "or",
	OpLike:    "like",
	OpBetween: "between",
	OpIn:      "in",
}

// String returns the SQL spelling of the operator.
func (op Operator) String() string {
	if s, ok := operatorNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// Tuple is the right operand of BETWEEN (two values) and IN (n values).
type Tuple []any

// Condition is accepted by Where, Update and Create: either an *Expr or a
// Values map.
type Condition interface {
	condition()
}

// Values maps field names to values. In a where-list each entry becomes
// "field = value"; in a set-list it becomes an assignment.
//
// Example:
//
//	db.Model(User).Where(verso.Values{"name": "Amy"}).Select(ctx)
type Values map[string]any

func (Values) condition() {}

// Expr is an immutable binary expression node. Operands are *Field, *Expr,
// Tuple, or a scalar literal. Nodes are built by the functions below and by
// the methods on Field and Expr; they never change after construction.
//
// Example:
//
//	User.F("id").Gt(3).And(User.F("name").Like("A%"))
type Expr struct {
	left  any
	op    Operator
	right any
	hash  uint64
}

func (*Expr) condition() {}

func newExpr(left any, op Operator, right any) *Expr {
	return &Expr{
		left:  left,
		op:    op,
		right: right,
		hash:  hashNode(left, op, right),
	}
}

// Left returns the left operand.
func (e *Expr) Left() any { return e.left }

// Op returns the operator.
func (e *Expr) Op() Operator { return e.op }

// Right returns the right operand.
func (e *Expr) Right() any { return e.right }

// Hash returns the structural hash of the tree rooted at e.
// Structurally equal trees have equal hashes.
func (e *Expr) Hash() uint64 { return e.hash }

// Equal reports whether e and o are structurally identical trees.
func (e *Expr) Equal(o *Expr) bool {
	if e == o {
		return true
	}
	if e == nil || o == nil {
		return false
	}
	return e.hash == o.hash &&
		e.op == o.op &&
		operandEqual(e.left, o.left) &&
		operandEqual(e.right, o.right)
}

// Lt builds "left < right".
func Lt(left, right any) *Expr { return newExpr(left, OpLT, right) }

// Le builds "left <= right".
func Le(left, right any) *Expr { return newExpr(left, OpLE, right) }

// Gt builds "left > right".
func Gt(left, right any) *Expr { return newExpr(left, OpGT, right) }

// Ge builds "left >= right".
func Ge(left, right any) *Expr { return newExpr(left, OpGE, right) }

// Eq builds "left = right".
func Eq(left, right any) *Expr { return newExpr(left, OpEQ, right) }

// Ne builds "left <> right".
func Ne(left, right any) *Expr { return newExpr(left, OpNE, right) }

// Add builds "left + right".
func Add(left, right any) *Expr { return newExpr(left, OpAdd, right) }

// Like builds "left like pattern".
func Like(left any, pattern string) *Expr { return newExpr(left, OpLike, pattern) }

// Between builds "left between lo and hi".
func Between(left, lo, hi any) *Expr { return newExpr(left, OpBetween, Tuple{lo, hi}) }

// In builds "left in (v1, v2, ...)".
func In(left any, values ...any) *Expr { return newExpr(left, OpIn, Tuple(values)) }

// Assign builds the assignment "field = value" used in set-lists.
func Assign(field *Field, value any) *Expr { return newExpr(field, OpEQ, value) }

// And folds its arguments left to right with "and".
// And(a) is a; And() is nil.
func And(exprs ...*Expr) *Expr { return fold(OpAnd, exprs) }

// Or folds its arguments left to right with "or".
func Or(exprs ...*Expr) *Expr { return fold(OpOr, exprs) }

func fold(op Operator, exprs []*Expr) *Expr {
	if len(exprs) == 0 {
		return nil
	}
	acc := exprs[0]
	for _, e := range exprs[1:] {
		acc = newExpr(acc, op, e)
	}
	return acc
}

// And combines e with o using "and".
func (e *Expr) And(o *Expr) *Expr { return newExpr(e, OpAnd, o) }

// Or combines e with o using "or".
func (e *Expr) Or(o *Expr) *Expr { return newExpr(e, OpOr, o) }

// Add builds "e + v".
func (e *Expr) Add(v any) *Expr { return newExpr(e, OpAdd, v) }

// Eq builds "e = v".
func (e *Expr) Eq(v any) *Expr { return newExpr(e, OpEQ, v) }

// Ne builds "e <> v".
func (e *Expr) Ne(v any) *Expr { return newExpr(e, OpNE, v) }

// Lt builds "e < v".
func (e *Expr) Lt(v any) *Expr { return newExpr(e, OpLT, v) }

// Le builds "e <= v".
func (e *Expr) Le(v any) *Expr { return newExpr(e, OpLE, v) }

// Gt builds "e > v".
func (e *Expr) Gt(v any) *Expr { return newExpr(e, OpGT, v) }

// Ge builds "e >= v".
func (e *Expr) Ge(v any) *Expr { return newExpr(e, OpGE, v) }

// operand type tags mixed into the structural hash.
const (
	tagNil byte = iota + 1
	tagField
	tagExpr
	tagString
	tagBytes
	tagInt
	tagUint
	tagFloat
	tagBool
	tagTime
	tagTuple
	tagOther
)

func hashNode(left any, op Operator, right any) uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(op))
	_, _ = d.Write(buf[:])
	hashOperand(d, left)
	hashOperand(d, right)
	return d.Sum64()
}

//nolint:cyclop // One case per operand kind.
func hashOperand(d *xxhash.Digest, v any) {
	var buf [9]byte
	put := func(tag byte, n uint64) {
		buf[0] = tag
		binary.LittleEndian.PutUint64(buf[1:], n)
		_, _ = d.Write(buf[:])
	}

	switch x := v.(type) {
	case nil:
		put(tagNil, 0)
	case *Field:
		if x == nil {
			put(tagNil, 0)
			return
		}
		put(tagField, x.id)
	case *Expr:
		if x == nil {
			put(tagNil, 0)
			return
		}
		put(tagExpr, x.hash)
	case string:
		put(tagString, uint64(len(x)))
		_, _ = d.WriteString(x)
	case []byte:
		put(tagBytes, uint64(len(x)))
		_, _ = d.Write(x)
	case bool:
		n := uint64(0)
		if x {
			n = 1
		}
		put(tagBool, n)
	case time.Time:
		put(tagTime, uint64(x.UnixNano()))
	case Tuple:
		put(tagTuple, uint64(len(x)))
		for _, item := range x {
			hashOperand(d, item)
		}
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			put(tagInt, uint64(rv.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			put(tagUint, rv.Uint())
		case reflect.Float32, reflect.Float64:
			put(tagFloat, math.Float64bits(rv.Float()))
		default:
			put(tagOther, 0)
			_, _ = d.WriteString(fmt.Sprintf("%T:%v", v, v))
		}
	}
}

func operandEqual(a, b any) bool {
	switch x := a.(type) {
	case *Field:
		y, ok := b.(*Field)
		return ok && x == y
	case *Expr:
		y, ok := b.(*Expr)
		return ok && x.Equal(y)
	case Tuple:
		y, ok := b.(Tuple)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !operandEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y) && x.Location().String() == y.Location().String()
	default:
		return reflect.DeepEqual(a, b)
	}
}
