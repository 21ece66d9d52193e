package logger

import (
	"regexp"
	"strings"
)

// Sanitizer masks literals that are compared with or assigned to sensitive
// columns, so generated statements can be logged without leaking secrets.
// Statements embed their values inline, so masking works on the SQL text.
type Sanitizer struct {
	maskValue string
	pattern   *regexp.Regexp
	maxLen    int
}

// defaultSensitiveFields are common column names holding secrets.
var defaultSensitiveFields = []string{
	"password", "passwd", "pwd",
	"token", "api_key", "apikey", "api_token",
	"secret", "auth", "authorization",
	"credit_card", "card_number", "cvv", "cvc",
	"ssn", "social_security",
	"private_key", "priv_key",
}

// NewSanitizer creates a new sanitizer with the specified sensitive field names.
// If no fields are provided, a default set of common sensitive field names is used.
func NewSanitizer(sensitiveFields []string) *Sanitizer {
	if len(sensitiveFields) == 0 {
		sensitiveFields = defaultSensitiveFields
	}

	quoted := make([]string, len(sensitiveFields))
	for i, f := range sensitiveFields {
		quoted[i] = regexp.QuoteMeta(f)
	}

	// column (optionally table-qualified), an operator, then a quoted
	// string (backslash or doubled-quote escapes) or a bare number.
	pattern := regexp.MustCompile(
		`(?i)(\b(?:\w+\.)?(?:` + strings.Join(quoted, "|") + `)\b\s*(?:=|<>|<=|>=|<|>|\blike\b)\s*)` +
			`('(?:[^'\\]|\\.|'')*'|-?[0-9][0-9.eE+-]*)`)

	return &Sanitizer{
		maskValue: "***REDACTED***",
		pattern:   pattern,
		maxLen:    2000,
	}
}

// MaskSQL returns sql with sensitive literals replaced by the mask value.
// The input is not modified.
func (s *Sanitizer) MaskSQL(sql string) string {
	return s.pattern.ReplaceAllString(sql, "${1}'"+s.maskValue+"'")
}

// FormatSQL masks and truncates sql for logging.
func (s *Sanitizer) FormatSQL(sql string) string {
	masked := s.MaskSQL(sql)
	if len(masked) > s.maxLen {
		return masked[:s.maxLen] + "..."
	}
	return masked
}
