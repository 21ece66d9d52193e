package verso

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blogSchema struct {
	User     *Model
	Post     *Model
	UserPost *Model
}

// openBlog opens an in-memory SQLite database holding two users and three
// posts.
func openBlog(t *testing.T, opts ...Option) (*DB, blogSchema) {
	t.Helper()

	db, err := Open("sqlite", ":memory:", append([]Option{WithMaxOpenConns(1)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE user (id INTEGER PRIMARY KEY, name TEXT, email TEXT)`,
		`CREATE TABLE post (id INTEGER PRIMARY KEY, title TEXT, user_id INTEGER)`,
		`INSERT INTO user (id, name, email) VALUES (1, 'ann', 'ann@example.com'), (2, 'bob', NULL)`,
		`INSERT INTO post (id, title, user_id) VALUES (1, 'hello', 1), (2, 'again', 1), (3, 'it''s bob', 2)`,
	} {
		_, err := db.SQLDB().Exec(stmt)
		require.NoError(t, err)
	}

	reg := NewRegistry()
	user, err := reg.Register("User", Column("name"), Column("email"))
	require.NoError(t, err)
	post, err := reg.Register("Post", Column("title"), ForeignKey("user_id", user.PrimaryKey()))
	require.NoError(t, err)

	return db, blogSchema{User: user, Post: post, UserPost: MustJoin(user, post)}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)

	_, err = OpenConfig(Config{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestSelect_SingleModel(t *testing.T) {
	db, s := openBlog(t)
	ctx := context.Background()

	res, err := db.Model(s.Post).
		Where(s.Post.F("user_id").Eq(1)).
		OrderBy(s.Post.F("id"), true).
		Select(ctx, s.Post.F("title"))
	require.NoError(t, err)
	assert.Zero(t, res.Count(), "nothing read yet")

	var titles []any
	var ids []any
	for row, err := range res.FetchAll() {
		require.NoError(t, err)
		titles = append(titles, row.Get("title"))
		ids = append(ids, row.ID())
	}
	assert.Equal(t, []any{"again", "hello"}, titles)
	assert.Equal(t, []any{int64(2), int64(1)}, ids)
	assert.Equal(t, int64(2), res.Count())

	stats := db.Stats()
	assert.Equal(t, int64(1), stats.Queries)
	assert.Equal(t, "select post.title, post.id from post where post.user_id = 1 order by post.id desc ", stats.LastSQL)
}

func TestSelect_EscapedLiteral(t *testing.T) {
	db, s := openBlog(t)

	res, err := db.Model(s.Post).Where(s.Post.F("title").Eq("it's bob")).Select(context.Background())
	require.NoError(t, err)

	row, err := res.FetchOne()
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(3), row.ID())
	assert.Equal(t, int64(2), row.Get("user_id"))
}

func TestSelect_NullAndNoRows(t *testing.T) {
	db, s := openBlog(t)
	ctx := context.Background()

	res, err := db.Model(s.User).At(2).Select(ctx)
	require.NoError(t, err)
	row, err := res.FetchOne()
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "bob", row.Get("name"))
	assert.True(t, row.Has("email"))
	assert.Nil(t, row.Get("email"))

	res, err = db.Model(s.User).Where(s.User.F("name").In("zed", "yan")).Select(ctx)
	require.NoError(t, err)
	row, err = res.FetchOne()
	assert.NoError(t, err)
	assert.Nil(t, row)
}

func TestSelect_Joined(t *testing.T) {
	db, s := openBlog(t)

	res, err := db.Model(s.UserPost).
		Where(s.Post.F("user_id").References(), s.User.F("name").Eq("ann")).
		OrderBy(s.Post.F("id"), false).
		Select(context.Background())
	require.NoError(t, err)

	var got [][2]any
	for rows, err := range res.FetchAllJoined() {
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Same(t, s.User, rows[0].Model())
		assert.Same(t, s.Post, rows[1].Model())
		assert.Equal(t, rows[0].ID(), rows[1].Get("user_id"))
		got = append(got, [2]any{rows[0].Get("name"), rows[1].Get("title")})
	}
	assert.Equal(t, [][2]any{{"ann", "hello"}, {"ann", "again"}}, got)
}

func TestExecutionErrorCarriesDriverError(t *testing.T) {
	db, s := openBlog(t)

	// "insert ... set" is MySQL syntax; SQLite rejects it.
	_, _, err := db.Model(s.User).Insert(context.Background(), Values{"name": "cy"})
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "insert into user set user.name = 'cy'", execErr.SQL)

	var driverErr *DriverError
	require.ErrorAs(t, err, &driverErr)
	assert.Equal(t, "sqlite", driverErr.Driver)
	assert.Equal(t, int64(1), db.Stats().Failures)
}

func TestCompileErrorNeverReachesDatabase(t *testing.T) {
	db, s := openBlog(t)

	_, err := db.Model(s.User).Update(context.Background())
	assert.ErrorIs(t, err, ErrStatementCompile)
	assert.Zero(t, db.Stats().Queries)
}

func TestClose(t *testing.T) {
	db, s := openBlog(t)
	require.NoError(t, db.Close())

	_, err := db.Model(s.User).Select(context.Background())
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestNewDB_CustomExecutor(t *testing.T) {
	exec := &recordingExecutor{}
	db := NewDB(exec, nil, WithCompileCacheCapacity(8))

	reg := NewRegistry()
	user, err := reg.Register("User", Column("name"))
	require.NoError(t, err)

	n, err := db.Model(user).At(7).Update(context.Background(), Values{"name": `o"k`})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []string{`update user set user.name = 'o\"k' where user.id = 7`}, exec.statements)

	assert.Nil(t, db.SQLDB())
	assert.NoError(t, db.Ping(context.Background()))
	assert.True(t, db.Healthy())
	assert.Equal(t, Stats{}, db.Stats())
	assert.NoError(t, db.Close())
}

type recordingExecutor struct {
	statements []string
}

func (e *recordingExecutor) Execute(_ context.Context, sql string) (Cursor, error) {
	e.statements = append(e.statements, sql)
	return affectedCursor(1), nil
}

type affectedCursor int64

func (c affectedCursor) Columns() []string { return nil }
func (c affectedCursor) Fetch() ([]any, bool, error) { return nil, false, nil }
func (c affectedCursor) RowsAffected() int64 { return int64(c) }
func (c affectedCursor) LastInsertID() (int64, bool) { return 0, false }
func (c affectedCursor) Close() error { return nil }
