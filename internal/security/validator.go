// Package security validates the identifiers that end up unquoted in
// generated statements.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is returned for table or column names that cannot be
// embedded in a statement as-is.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// maxIdentifierLength is the MySQL limit for table and column names.
const maxIdentifierLength = 64

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedWords are keywords the generated grammar itself uses, plus the
// common ones every supported engine rejects as bare identifiers.
var reservedWords = []string{
	"add", "all", "alter", "and", "as", "asc", "between", "by", "case",
	"create", "delete", "desc", "distinct", "drop", "else", "exists", "from",
	"group", "having", "in", "index", "insert", "into", "is", "join", "key",
	"like", "limit", "not", "null", "on", "or", "order", "primary",
	"references", "select", "set", "table", "then", "to", "union", "unique",
	"update", "values", "when", "where",
}

// Validator validates identifiers against a safe pattern and, in strict
// mode, against reserved words.
type Validator struct {
	reserved map[string]bool
	strict   bool
}

// ValidatorOption configures the Validator.
type ValidatorOption func(*Validator)

// WithStrict enables rejection of reserved words.
func WithStrict(strict bool) ValidatorOption {
	return func(v *Validator) {
		v.strict = strict
	}
}

// NewValidator creates a new identifier validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		reserved: make(map[string]bool, len(reservedWords)),
	}
	for _, w := range reservedWords {
		v.reserved[w] = true
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// ValidateIdentifier checks that name is a plain identifier.
func (v *Validator) ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidIdentifier, name, maxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q contains characters outside [A-Za-z0-9_]", ErrInvalidIdentifier, name)
	}
	if v.strict && v.reserved[strings.ToLower(name)] {
		return fmt.Errorf("%w: %q is a reserved word", ErrInvalidIdentifier, name)
	}
	return nil
}
