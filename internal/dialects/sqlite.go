package dialects

import "strings"

// SQLiteDialect implements SQLite-specific escaping.
type SQLiteDialect struct{}

func init() {
	RegisterDialect("sqlite", &SQLiteDialect{})
	RegisterDialect("sqlite3", &SQLiteDialect{})
}

// Name returns "sqlite".
func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

// Escape doubles single quotes. SQLite has no backslash escapes.
func (d *SQLiteDialect) Escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
