package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizer_MaskSQL(t *testing.T) {
	s := NewSanitizer(nil)

	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "no sensitive columns",
			sql:  "select user.id, user.name from user where user.name = 'Amy'",
			want: "select user.id, user.name from user where user.name = 'Amy'",
		},
		{
			name: "qualified assignment",
			sql:  "insert into user set user.name = 'Amy', user.password = 's3cret'",
			want: "insert into user set user.name = 'Amy', user.password = '***REDACTED***'",
		},
		{
			name: "escaped quote inside literal",
			sql:  `update user set user.token = 'a\'b' where user.id = 1`,
			want: "update user set user.token = '***REDACTED***' where user.id = 1",
		},
		{
			name: "numeric literal",
			sql:  "select user.id from user where user.pwd = 1234",
			want: "select user.id from user where user.pwd = '***REDACTED***'",
		},
		{
			name: "like operator",
			sql:  "select user.id from user where user.api_key like 'ab%'",
			want: "select user.id from user where user.api_key like '***REDACTED***'",
		},
		{
			name: "column name only as prefix is left alone",
			sql:  "select user.id from user where user.password_hint = 'dog'",
			want: "select user.id from user where user.password_hint = 'dog'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.MaskSQL(tt.sql))
		})
	}
}

func TestSanitizer_CustomFields(t *testing.T) {
	s := NewSanitizer([]string{"pin"})

	assert.Equal(t,
		"update card set card.pin = '***REDACTED***' where card.id = 2",
		s.MaskSQL("update card set card.pin = 9876 where card.id = 2"))
	assert.Equal(t,
		"update card set card.password = 'x'",
		s.MaskSQL("update card set card.password = 'x'"))
}

func TestSanitizer_FormatSQL_Truncates(t *testing.T) {
	s := NewSanitizer(nil)
	long := "select " + strings.Repeat("a", 3000)

	out := s.FormatSQL(long)
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Len(t, out, 2003)
}
