package dialects

import "strings"

// MySQLDialect implements MySQL-specific escaping.
type MySQLDialect struct{}

// mysqlEscaper mirrors mysql_real_escape_string for the default
// (backslash-escaping) SQL mode.
var mysqlEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"'", "\\'",
	"\"", "\\\"",
	"\x00", "\\0",
	"\n", "\\n",
	"\r", "\\r",
	"\x1a", "\\Z",
)

// Name returns "mysql".
func (d *MySQLDialect) Name() string {
	return "mysql"
}

// Escape backslash-escapes quotes, backslashes and control characters.
func (d *MySQLDialect) Escape(s string) string {
	return mysqlEscaper.Replace(s)
}

func init() {
	RegisterDialect("mysql", &MySQLDialect{})
}
