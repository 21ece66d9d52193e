package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRow(t *testing.T) {
	s := newTestSchema(t)

	row, err := NewRow(s.User, s.User.F("name").Assign("Amy"), Values{"email": "a@x.io", "id": 3})
	require.NoError(t, err)

	assert.Same(t, s.User, row.Model())
	assert.Equal(t, "Amy", row.Get("name"))
	assert.Equal(t, "a@x.io", s.User.F("email").Get(row))
	assert.Equal(t, 3, row.ID())
	assert.True(t, row.Has("email"))
	assert.False(t, row.Has("missing"))
	assert.Nil(t, row.Get("missing"))
}

func TestNewRow_Errors(t *testing.T) {
	s := newTestSchema(t)

	tests := []struct {
		name    string
		model   *Model
		conds   []Condition
		wantErr error
	}{
		{"nil model", nil, nil, ErrNilModel},
		{"composed model", s.UserPost, nil, ErrComposedModel},
		{"unknown key", s.User, []Condition{Values{"age": 3}}, ErrUnknownField},
		{"field of another model", s.User, []Condition{s.Post.F("title").Assign("x")}, ErrForeignField},
		{"not an assignment", s.User, []Condition{s.User.F("id").Gt(1)}, ErrStatementCompile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRow(tt.model, tt.conds...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRow_Set(t *testing.T) {
	s := newTestSchema(t)
	row, err := NewRow(s.User)
	require.NoError(t, err)

	require.NoError(t, row.Set("name", "Bob"))
	assert.ErrorIs(t, row.Set("age", 1), ErrUnknownField)

	require.NoError(t, s.User.F("email").Set(row, "b@x.io"))
	assert.ErrorIs(t, s.Post.F("title").Set(row, "x"), ErrForeignField)

	data := row.Data()
	assert.Equal(t, map[string]any{"name": "Bob", "email": "b@x.io"}, data)

	data["name"] = "changed"
	assert.Equal(t, "Bob", row.Get("name"))
}

func TestRow_TypedReaders(t *testing.T) {
	s := newTestSchema(t)
	row := newRowFromData(s.User, map[string]any{
		"id":    "42",
		"name":  []byte("Amy"),
		"email": "2024-03-01 10:30:00",
	})

	id, err := row.Int64("id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	name, err := row.String("name")
	require.NoError(t, err)
	assert.Equal(t, "Amy", name)

	ts, err := row.Time("email")
	require.NoError(t, err)
	assert.Equal(t, 2024, ts.Year())
	assert.Equal(t, time.March, ts.Month())

	row = newRowFromData(s.User, map[string]any{"id": "1.5", "name": "true"})
	f, err := row.Float64("id")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, f, 1e-9)

	b, err := row.Bool("name")
	require.NoError(t, err)
	assert.True(t, b)

	_, err = row.Int64("name")
	assert.Error(t, err)
}

type rowUser struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
}

func TestRow_DecodeAndFromStruct(t *testing.T) {
	s := newTestSchema(t)

	row := newRowFromData(s.User, map[string]any{"id": int64(7), "name": "Amy", "email": []byte("a@x.io")})
	var u rowUser
	require.NoError(t, row.Decode(&u))
	assert.Equal(t, rowUser{ID: 7, Name: "Amy", Email: "a@x.io"}, u)

	fresh, err := RowFromStruct(s.User, &rowUser{Name: "Bob"})
	require.NoError(t, err)
	assert.False(t, fresh.Has("id"))
	assert.Equal(t, "Bob", fresh.Get("name"))

	existing, err := RowFromStruct(s.User, rowUser{ID: 9, Name: "Cy"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), existing.ID())

	type extra struct {
		Name string `db:"name"`
		Age  int    `db:"age"`
	}
	_, err = RowFromStruct(s.User, extra{Name: "x"})
	assert.ErrorIs(t, err, ErrUnknownField)
}
