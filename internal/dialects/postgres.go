package dialects

import "strings"

// PostgresDialect implements PostgreSQL-specific escaping.
type PostgresDialect struct{}

func init() {
	RegisterDialect("postgres", &PostgresDialect{})
	RegisterDialect("postgresql", &PostgresDialect{})
}

// Name returns "postgres".
func (d *PostgresDialect) Name() string {
	return "postgres"
}

// Escape doubles single quotes (standard_conforming_strings=on).
// NUL bytes cannot be stored in text values and are dropped.
func (d *PostgresDialect) Escape(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.ReplaceAll(s, "'", "''")
}
