package database

import (
	"context"
	"time"
)

// QueryEvent contains information about an executed statement.
// This is passed to QueryHook callbacks for logging, metrics, or tracing.
type QueryEvent struct {
	// SQL is the executed statement, with sensitive literals masked
	SQL string
	// Duration is how long the statement took to execute
	Duration time.Duration
	// RowsAffected is the number of rows affected (for INSERT/UPDATE/DELETE)
	RowsAffected int64
	// Error is any error that occurred during execution (nil on success)
	Error error
	// Operation is the statement kind (SELECT, INSERT, UPDATE, DELETE, UNKNOWN)
	Operation string
}

// QueryHook is a callback function invoked after each statement.
//
// Example:
//
//	db, _ := database.Open("mysql", dsn,
//	    database.WithQueryHook(func(ctx context.Context, e database.QueryEvent) {
//	        slog.Info("query", "sql", e.SQL, "duration", e.Duration, "err", e.Error)
//	    }))
type QueryHook func(ctx context.Context, event QueryEvent)

func (db *DB) invokeHook(ctx context.Context, event QueryEvent) {
	if db.queryHook != nil {
		db.queryHook(ctx, event)
	}
}
