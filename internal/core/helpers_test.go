package core

import (
	"context"
	"sync"
	"testing"

	"github.com/coregx/verso/internal/dialects"
	"github.com/stretchr/testify/require"
)

// testSchema holds User(id, name, email), Post(id, title, user_id -> user.id)
// and their composition, registered on a private registry.
type testSchema struct {
	reg      *Registry
	User     *Model
	Post     *Model
	UserPost *Model
}

func newTestSchema(t *testing.T) testSchema {
	t.Helper()

	reg := NewRegistry()
	user, err := reg.Register("User", Column("name"), Column("email"))
	require.NoError(t, err)
	post, err := reg.Register("Post", Column("title"), ForeignKey("user_id", user.PrimaryKey()))
	require.NoError(t, err)

	return testSchema{
		reg:      reg,
		User:     user,
		Post:     post,
		UserPost: MustJoin(user, post),
	}
}

// sliceCursor is an in-memory Cursor.
type sliceCursor struct {
	columns  []string
	rows     [][]any
	pos      int
	affected int64
	lastID   int64
	hasID    bool
	closed   bool
}

func (c *sliceCursor) Columns() []string { return c.columns }

func (c *sliceCursor) Fetch() ([]any, bool, error) {
	if c.closed || c.pos >= len(c.rows) {
		return nil, false, nil
	}
	row := c.rows[c.pos]
	c.pos++
	return row, true, nil
}

func (c *sliceCursor) RowsAffected() int64 { return c.affected }

func (c *sliceCursor) LastInsertID() (int64, bool) { return c.lastID, c.hasID }

func (c *sliceCursor) Close() error {
	c.closed = true
	return nil
}

// fakeExecutor records statements and replays queued cursors.
type fakeExecutor struct {
	mu         sync.Mutex
	statements []string
	cursors    []*sliceCursor
	err        error
}

func (f *fakeExecutor) Execute(_ context.Context, sql string) (Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statements = append(f.statements, sql)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.cursors) == 0 {
		return &sliceCursor{}, nil
	}
	c := f.cursors[0]
	f.cursors = f.cursors[1:]
	return c, nil
}

func (f *fakeExecutor) queue(c *sliceCursor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, c)
}

func (f *fakeExecutor) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statements) == 0 {
		return ""
	}
	return f.statements[len(f.statements)-1]
}

func newTestDB() (*DB, *fakeExecutor) {
	exec := &fakeExecutor{}
	return NewDB(exec, &dialects.MySQLDialect{}), exec
}

func newTestCompiler() *Compiler {
	return NewCompiler(&dialects.MySQLDialect{}, 0)
}
