// Package dialects provides database-specific literal escaping for MySQL,
// PostgreSQL and SQLite, registered by driver name.
package dialects

import "sync"

// Dialect defines database-specific behaviors.
type Dialect interface {
	// Name returns the canonical dialect name.
	Name() string
	// Escape neutralizes quote and control characters so the result can be
	// embedded between single quotes in a statement.
	Escape(string) string
}

var (
	mu       sync.RWMutex
	dialects = make(map[string]Dialect)
)

// RegisterDialect registers a database dialect by driver name.
func RegisterDialect(name string, d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[name] = d
}

// Lookup retrieves a registered dialect by driver name.
func Lookup(name string) (Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}
