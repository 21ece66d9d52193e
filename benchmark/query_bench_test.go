package benchmark

import (
	"context"
	"strconv"
	"testing"

	"github.com/coregx/verso"
)

type benchSchema struct {
	db       *verso.DB
	user     *verso.Model
	post     *verso.Model
	userPost *verso.Model
}

func setupBench(b *testing.B) benchSchema {
	b.Helper()

	db, err := verso.Open("sqlite", ":memory:", verso.WithMaxOpenConns(1))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE user (id INTEGER PRIMARY KEY, name TEXT, email TEXT)`,
		`CREATE TABLE post (id INTEGER PRIMARY KEY, title TEXT, user_id INTEGER)`,
	} {
		if _, err := db.SQLDB().ExecContext(ctx, stmt); err != nil {
			b.Fatal(err)
		}
	}
	for i := 1; i <= 100; i++ {
		n := strconv.Itoa(i)
		if _, err := db.SQLDB().ExecContext(ctx,
			`INSERT INTO user (id, name, email) VALUES (`+n+`, 'user`+n+`', 'user`+n+`@example.com')`); err != nil {
			b.Fatal(err)
		}
		if _, err := db.SQLDB().ExecContext(ctx,
			`INSERT INTO post (id, title, user_id) VALUES (`+n+`, 'post`+n+`', `+n+`)`); err != nil {
			b.Fatal(err)
		}
	}

	reg := verso.NewRegistry()
	user, err := reg.Register("User", verso.Column("name"), verso.Column("email"))
	if err != nil {
		b.Fatal(err)
	}
	post, err := reg.Register("Post", verso.Column("title"), verso.ForeignKey("user_id", user.PrimaryKey()))
	if err != nil {
		b.Fatal(err)
	}

	return benchSchema{db: db, user: user, post: post, userPost: verso.MustJoin(user, post)}
}

func BenchmarkCompileExpression(b *testing.B) {
	s := setupBench(b)
	name := s.user.F("name")
	id := s.user.F("id")

	b.Run("Cached", func(b *testing.B) {
		expr := verso.And(name.Like("a%"), id.Between(1, 50), id.In(1, 2, 3))
		c := s.db.Compiler()
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = c.CompileExpression(expr)
		}
	})

	b.Run("Distinct", func(b *testing.B) {
		c := s.db.Compiler()
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = c.CompileExpression(verso.And(name.Eq("user"+strconv.Itoa(i)), id.Gt(i)))
		}
	})
}

func BenchmarkSelectQuery(b *testing.B) {
	s := setupBench(b)
	ctx := context.Background()

	b.Run("SingleModel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			res, err := s.db.Model(s.user).Where(s.user.F("id").Le(50)).Select(ctx)
			if err != nil {
				b.Fatal(err)
			}
			for _, err := range res.FetchAll() {
				if err != nil {
					b.Fatal(err)
				}
			}
		}
	})

	b.Run("Joined", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			res, err := s.db.Model(s.userPost).
				Where(s.post.F("user_id").References(), s.user.F("id").Le(50)).
				Select(ctx)
			if err != nil {
				b.Fatal(err)
			}
			for _, err := range res.FetchAllJoined() {
				if err != nil {
					b.Fatal(err)
				}
			}
		}
	})

	b.Run("FetchOne", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			res, err := s.db.Model(s.user).At(i%100 + 1).Select(ctx)
			if err != nil {
				b.Fatal(err)
			}
			if _, err := res.FetchOne(); err != nil {
				b.Fatal(err)
			}
		}
	})
}
