package core

import "context"

// Executor runs one SQL statement against a store.
// Implementations own connection management, liveness checks and
// reconnection; the core never retries.
type Executor interface {
	Execute(ctx context.Context, sql string) (Cursor, error)
}

// Cursor is the outcome of one statement. Rows are fetched positionally in
// the order of Columns. Statements without a result set report no columns
// and no rows.
type Cursor interface {
	// Columns returns the result column labels.
	Columns() []string
	// Fetch returns the next row; ok is false once the rows are exhausted.
	Fetch() (row []any, ok bool, err error)
	// RowsAffected returns the affected row count (rows read so far for
	// result sets).
	RowsAffected() int64
	// LastInsertID returns the generated key of an insert, if any.
	LastInsertID() (int64, bool)
	// Close releases the cursor. It is safe to call more than once.
	Close() error
}

// Escaper neutralizes quote and control characters of literal text.
type Escaper interface {
	Escape(s string) string
}
