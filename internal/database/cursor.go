package database

import (
	"context"
	"database/sql"
	"sync"
)

// execCursor is the outcome of a statement without a result set.
type execCursor struct {
	affected int64
	lastID   int64
	hasID    bool
}

func newExecCursor(res sql.Result) *execCursor {
	c := &execCursor{}
	if n, err := res.RowsAffected(); err == nil {
		c.affected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		c.lastID, c.hasID = id, true
	}
	return c
}

func (c *execCursor) Columns() []string { return nil }

func (c *execCursor) Fetch() ([]any, bool, error) { return nil, false, nil }

func (c *execCursor) RowsAffected() int64 { return c.affected }

func (c *execCursor) LastInsertID() (int64, bool) { return c.lastID, c.hasID }

func (c *execCursor) Close() error { return nil }

// rowsCursor streams a result set. Text columns arrive as []byte from most
// drivers and are handed out as strings.
type rowsCursor struct {
	rows    *sql.Rows
	columns []string
	cancel  context.CancelFunc

	mu     sync.Mutex
	read   int64
	closed bool
}

func newRowsCursor(rows *sql.Rows, cancel context.CancelFunc) (*rowsCursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		cancel()
		return nil, err
	}
	return &rowsCursor{rows: rows, columns: columns, cancel: cancel}, nil
}

func (c *rowsCursor) Columns() []string { return c.columns }

func (c *rowsCursor) Fetch() ([]any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false, nil
	}
	if !c.rows.Next() {
		err := c.rows.Err()
		c.closeLocked()
		return nil, false, classifyError(err)
	}

	values := make([]any, len(c.columns))
	dest := make([]any, len(c.columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := c.rows.Scan(dest...); err != nil {
		c.closeLocked()
		return nil, false, classifyError(err)
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}

	c.read++
	return values, true, nil
}

// RowsAffected returns the number of rows read so far; it is final once
// the rows are exhausted.
func (c *rowsCursor) RowsAffected() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read
}

func (c *rowsCursor) LastInsertID() (int64, bool) { return 0, false }

func (c *rowsCursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *rowsCursor) closeLocked() error {
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.rows.Close()
	c.cancel()
	return err
}
