// Package database runs generated statements on a database/sql pool.
// It is the Executor behind the query layer: connection pooling, liveness
// checks, statement logging, tracing, metrics and error classification
// live here. The mysql, postgres and sqlite drivers are registered by
// importing this package.
package database

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/coregx/verso/internal/core"
	"github.com/coregx/verso/internal/logger"
	"github.com/coregx/verso/internal/tracer"
	"github.com/coregx/verso/internal/util"
	"github.com/prometheus/client_golang/prometheus"
)

// spanName is the name of the span wrapping each statement.
const spanName = "verso.execute"

// DB executes statements on a connection pool.
// It is safe for concurrent use.
type DB struct {
	sqlDB      *sql.DB
	driverName string

	logger    logger.Logger
	sanitizer *logger.Sanitizer
	tracer    tracer.Tracer
	queryHook QueryHook
	debug     bool
	timeout   time.Duration

	registerer     prometheus.Registerer
	metrics        *metrics
	healthInterval time.Duration
	health         *healthChecker

	queries  atomic.Int64
	failures atomic.Int64
	lastSQL  atomic.Value
	closed   atomic.Bool
}

// Stats is the statement accounting of a DB.
type Stats struct {
	// Queries is the number of statements executed
	Queries int64
	// Failures is the number of statements that returned an error
	Failures int64
	// LastSQL is the most recent statement, with sensitive literals masked
	LastSQL string
}

// Option is a functional option for configuring DB.
type Option func(*DB)

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxOpenConns(n)
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxIdleConns(n)
	}
}

// WithConnMaxLifetime sets the maximum amount of time a connection may be reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(db *DB) {
		db.sqlDB.SetConnMaxLifetime(d)
	}
}

// WithLogger sets the statement logger.
func WithLogger(l logger.Logger) Option {
	return func(db *DB) {
		db.logger = logger.OrNoop(l)
	}
}

// WithSensitiveFields replaces the column names whose literals are masked
// in logs, spans and hook events.
func WithSensitiveFields(fields ...string) Option {
	return func(db *DB) {
		db.sanitizer = logger.NewSanitizer(fields)
	}
}

// WithTracer sets the tracer wrapping each statement in a span.
func WithTracer(t tracer.Tracer) Option {
	return func(db *DB) {
		if t == nil {
			t = &tracer.NoopTracer{}
		}
		db.tracer = t
	}
}

// WithQueryHook sets a callback invoked after each statement.
func WithQueryHook(hook QueryHook) Option {
	return func(db *DB) {
		db.queryHook = hook
	}
}

// WithMetrics registers statement counters and latency histograms on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(db *DB) {
		db.registerer = reg
	}
}

// WithHealthCheck pings the pool every interval in the background.
// Non-positive intervals disable the check.
func WithHealthCheck(interval time.Duration) Option {
	return func(db *DB) {
		db.healthInterval = interval
	}
}

// WithDebug logs every statement: failures at error level with their SQL
// text, successes at debug level.
func WithDebug(debug bool) Option {
	return func(db *DB) {
		db.debug = debug
	}
}

// WithStatementTimeout bounds each statement. For selects the deadline
// also covers reading the rows.
func WithStatementTimeout(d time.Duration) Option {
	return func(db *DB) {
		db.timeout = d
	}
}

// Open opens a pool for driverName ("mysql", "postgres", "sqlite").
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	db, err := Wrap(sqlDB, driverName, opts...)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// OpenConfig opens a pool described by cfg. Explicit options are applied
// after the ones derived from cfg.
func OpenConfig(cfg Config, opts ...Option) (*DB, error) {
	return Open(cfg.Driver, cfg.DSN(), append(cfg.options(), opts...)...)
}

// Wrap wraps an existing *sql.DB. Closing the returned DB closes sqlDB.
func Wrap(sqlDB *sql.DB, driverName string, opts ...Option) (*DB, error) {
	db := &DB{
		sqlDB:      sqlDB,
		driverName: driverName,
		logger:     &logger.NoopLogger{},
		sanitizer:  logger.NewSanitizer(nil),
		tracer:     &tracer.NoopTracer{},
	}
	db.lastSQL.Store("")

	for _, opt := range opts {
		opt(db)
	}

	if db.registerer != nil {
		m, err := newMetrics(db.registerer)
		if err != nil {
			return nil, err
		}
		db.metrics = m
	}

	if db.healthInterval > 0 {
		db.health = newHealthChecker(sqlDB, db.logger, db.healthInterval)
		db.health.start()
	}

	return db, nil
}

// DriverName returns the driver the pool was opened with.
func (db *DB) DriverName() string {
	return db.driverName
}

// SQLDB returns the underlying pool.
func (db *DB) SQLDB() *sql.DB {
	return db.sqlDB
}

// Ping verifies a connection to the store is alive, establishing one if
// necessary.
func (db *DB) Ping(ctx context.Context) error {
	return classifyError(db.sqlDB.PingContext(ctx))
}

// Healthy reports the outcome of the last background health check.
// It is true when no check is configured or none has run yet.
func (db *DB) Healthy() bool {
	if db.health == nil {
		return true
	}
	healthy, _, _ := db.health.status()
	return healthy
}

// LastHealthCheck returns the time and error of the last background check.
func (db *DB) LastHealthCheck() (time.Time, error) {
	if db.health == nil {
		return time.Time{}, nil
	}
	_, at, err := db.health.status()
	return at, err
}

// Stats returns statement accounting.
func (db *DB) Stats() Stats {
	return Stats{
		Queries:  db.queries.Load(),
		Failures: db.failures.Load(),
		LastSQL:  db.lastSQL.Load().(string),
	}
}

// Close stops the health checker and closes the pool.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	if db.health != nil {
		db.health.shutdown()
	}
	return db.sqlDB.Close()
}

// Execute runs one statement. Selects return a streaming cursor over the
// result set; other statements return their affected row count and
// generated key.
func (db *DB) Execute(ctx context.Context, query string) (core.Cursor, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if util.IsCanceled(ctx) {
		return nil, ctx.Err()
	}

	operation := tracer.DetectOperation(query)
	ctx, span := db.tracer.StartSpan(ctx, spanName)
	defer span.End()

	start := time.Now()
	var (
		cur      core.Cursor
		affected int64
		err      error
	)
	if operation == "SELECT" {
		cur, err = db.query(ctx, query)
	} else {
		var ec *execCursor
		ec, err = db.exec(ctx, query)
		if ec != nil {
			cur, affected = ec, ec.affected
		}
	}
	elapsed := time.Since(start)
	err = classifyError(err)

	db.record(ctx, span, query, operation, elapsed, affected, err)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (db *DB) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.timeout > 0 {
		return util.WithTimeout(ctx, db.timeout)
	}
	return context.WithCancel(ctx)
}

func (db *DB) query(ctx context.Context, query string) (*rowsCursor, error) {
	ctx, cancel := db.statementContext(ctx)
	rows, err := db.sqlDB.QueryContext(ctx, query)
	if err != nil {
		cancel()
		return nil, err
	}
	return newRowsCursor(rows, cancel)
}

func (db *DB) exec(ctx context.Context, query string) (*execCursor, error) {
	ctx, cancel := db.statementContext(ctx)
	defer cancel()

	res, err := db.sqlDB.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return newExecCursor(res), nil
}

// record updates accounting, span, metrics, logs and the hook.
func (db *DB) record(ctx context.Context, span tracer.Span, query, operation string, elapsed time.Duration, affected int64, err error) {
	masked := db.sanitizer.FormatSQL(query)

	db.queries.Add(1)
	if err != nil {
		db.failures.Add(1)
	}
	db.lastSQL.Store(masked)

	tracer.AddStatementAttributes(span, &tracer.StatementMetadata{
		SQL:          masked,
		Duration:     elapsed,
		RowsAffected: affected,
		Error:        err,
		Database:     db.driverName,
		Operation:    operation,
		Table:        tracer.DetectTable(query),
	})

	if db.metrics != nil {
		db.metrics.observe(operation, elapsed, err)
	}

	if db.debug {
		if err != nil {
			db.logger.Error("statement failed",
				"sql", masked,
				"duration_ms", elapsed.Milliseconds(),
				"database", db.driverName,
				"error", err,
			)
		} else {
			db.logger.Debug("statement executed",
				"sql", masked,
				"duration_ms", elapsed.Milliseconds(),
				"rows_affected", affected,
				"database", db.driverName,
			)
		}
	}

	db.invokeHook(ctx, QueryEvent{
		SQL:          masked,
		Duration:     elapsed,
		RowsAffected: affected,
		Error:        err,
		Operation:    operation,
	})
}
