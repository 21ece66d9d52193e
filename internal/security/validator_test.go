package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_ValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		ident   string
		strict  bool
		wantErr bool
	}{
		{"simple", "user", false, false},
		{"underscore", "user_id", false, false},
		{"leading underscore", "_meta", false, false},
		{"digits", "col2", false, false},
		{"empty", "", false, true},
		{"leading digit", "2col", false, true},
		{"space", "first name", false, true},
		{"dot", "user.id", false, true},
		{"quote", "na'me", false, true},
		{"semicolon", "id;drop", false, true},
		{"too long", strings.Repeat("a", 65), false, true},
		{"reserved lenient", "order", false, false},
		{"reserved strict", "order", true, true},
		{"reserved strict mixed case", "Select", true, true},
		{"non reserved strict", "orders", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(WithStrict(tt.strict))
			err := v.ValidateIdentifier(tt.ident)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIdentifier)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
