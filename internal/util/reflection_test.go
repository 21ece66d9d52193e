package util

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUser is a test struct with various field types.
type TestUser struct {
	ID        int       `db:"id,pk"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Age       int8      `db:"age"`
	internal  string    // Unexported - should be skipped.
	Ignored   int       `db:"-"` // Explicitly ignored.
	CreatedAt time.Time `db:"created_at"`
}

// TestPost references TestUser through a foreign key tag.
type TestPost struct {
	PostID int     `db:"post_id,pk"`
	UserID int64   `db:"user_id,fk=testuser.id"`
	Title  *string `db:"title"`
	Body   string
}

func TestParseDBTag(t *testing.T) {
	tests := []struct {
		tag  string
		want ColumnInfo
	}{
		{"name", ColumnInfo{Column: "name"}},
		{"id,pk", ColumnInfo{Column: "id", PrimaryKey: true}},
		{"user_id, fk=user.id", ColumnInfo{Column: "user_id", References: "user.id"}},
		{"-", ColumnInfo{Column: "-"}},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDBTag(tt.tag))
		})
	}
}

func TestStructColumns(t *testing.T) {
	cols, err := StructColumns(&TestUser{})
	require.NoError(t, err)

	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Column)
	}
	assert.Equal(t, []string{"id", "name", "email", "age", "created_at"}, names)
	assert.True(t, cols[0].PrimaryKey)

	cols, err = StructColumns(TestPost{})
	require.NoError(t, err)
	require.Len(t, cols, 4)
	assert.Equal(t, "testuser.id", cols[1].References)
	assert.Equal(t, "Body", cols[3].Column)

	_, err = StructColumns(42)
	assert.Error(t, err)
	_, err = StructColumns(nil)
	assert.Error(t, err)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "TestUser", TypeName(&TestUser{}))
	assert.Equal(t, "TestPost", TypeName(TestPost{}))
	assert.Equal(t, "", TypeName(nil))
}

func TestStructToMap(t *testing.T) {
	user := TestUser{ID: 123, Name: "Alice", Email: "alice@example.com", Age: 30}

	result, err := StructToMap(user)
	require.NoError(t, err)

	assert.Equal(t, 123, result["id"])
	assert.Equal(t, "Alice", result["name"])
	assert.Equal(t, int8(30), result["age"])
	assert.NotContains(t, result, "internal")
	assert.NotContains(t, result, "Ignored")

	var nilUser *TestUser
	_, err = StructToMap(nilUser)
	assert.Error(t, err)

	_, err = StructToMap("not a struct")
	assert.Error(t, err)
}

func TestMapToStruct(t *testing.T) {
	data := map[string]interface{}{
		"id":         int64(7),
		"name":       []byte("Bob"),
		"email":      "bob@example.com",
		"age":        "42",
		"created_at": "2024-03-01 10:20:30",
		"unknown":    "ignored",
	}

	var u TestUser
	require.NoError(t, MapToStruct(data, &u))
	assert.Equal(t, 7, u.ID)
	assert.Equal(t, "Bob", u.Name)
	assert.Equal(t, "bob@example.com", u.Email)
	assert.Equal(t, int8(42), u.Age)
	assert.Equal(t, 2024, u.CreatedAt.Year())

	err := MapToStruct(map[string]interface{}{"age": int64(1000)}, &u)
	assert.Error(t, err, "int8 overflow")

	assert.Error(t, MapToStruct(data, u))
}

func TestMapToStruct_Pointers(t *testing.T) {
	var p TestPost
	require.NoError(t, MapToStruct(map[string]interface{}{
		"post_id": int64(3),
		"user_id": int64(9),
		"title":   "hello",
	}, &p))

	require.NotNil(t, p.Title)
	assert.Equal(t, "hello", *p.Title)
	assert.Equal(t, int64(9), p.UserID)
}

func TestAssignValue_Nil(t *testing.T) {
	u := TestUser{Name: "x"}
	field := reflect.ValueOf(&u).Elem().Field(1)
	require.NoError(t, AssignValue(field, nil))
	assert.Equal(t, "", u.Name)
}

func TestSetField(t *testing.T) {
	var u TestUser
	require.NoError(t, SetField(&u, "id", int64(55)))
	assert.Equal(t, 55, u.ID)

	assert.Error(t, SetField(&u, "missing", 1))
	assert.Error(t, SetField(u, "id", 1))
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(nil))
	assert.True(t, IsZero(0))
	assert.True(t, IsZero(""))
	assert.False(t, IsZero(1))
	assert.False(t, IsZero("a"))
}
