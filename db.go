// Package verso maps declared models to relational tables and compiles
// chained builder calls into SQL statements. It supports MySQL, PostgreSQL
// and SQLite through database/sql and reconstructs rows of multi-table
// selects into one row per member model.
//
//	db, err := verso.Open("mysql", dsn)
//	user := verso.MustRegister("User", verso.Column("name"), verso.Column("email"))
//	id, ok, err := db.Model(user).Insert(ctx, verso.Values{"name": "ann"})
//	res, err := db.Model(user).Where(user.F("name").Like("a%")).Select(ctx)
package verso

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coregx/verso/internal/core"
	"github.com/coregx/verso/internal/database"
	"github.com/coregx/verso/internal/dialects"
	"github.com/coregx/verso/internal/logger"
	"github.com/coregx/verso/internal/tracer"
	"github.com/prometheus/client_golang/prometheus"
)

type (
	// Model is a registered table or a composition of tables.
	Model = core.Model
	// Field is a column of a model.
	Field = core.Field
	// Registry records models by table name.
	Registry = core.Registry
	// Expr is an immutable expression tree node.
	Expr = core.Expr
	// Operator identifies the operation of an Expr.
	Operator = core.Operator
	// Tuple is the operand list of between and in.
	Tuple = core.Tuple
	// Condition is an *Expr or a Values map.
	Condition = core.Condition
	// Values maps field names to values; each entry is an equality.
	Values = core.Values
	// Row is one materialized record of a model.
	Row = core.Row
	// ModelQuery accumulates statement state for one model.
	ModelQuery = core.ModelQuery
	// SelectResult is a lazy, one-shot select result.
	SelectResult = core.SelectResult
	// Order is an order-by clause.
	Order = core.Order
	// State is the in-progress statement of a ModelQuery.
	State = core.State
	// QueryType selects the statement kind generated from a State.
	QueryType = core.QueryType
	// Compiler renders expressions and states to SQL.
	Compiler = core.Compiler
	// Executor runs SQL text.
	Executor = core.Executor
	// Cursor is the outcome of one executed statement.
	Cursor = core.Cursor
	// Escaper escapes string literals for a database.
	Escaper = core.Escaper
	// CompileError reports a malformed expression tree or query state.
	CompileError = core.CompileError
	// ExecutionError wraps an executor failure with the statement text.
	ExecutionError = core.ExecutionError

	// Config describes a connection.
	Config = database.Config
	// Stats is the statement accounting of a DB.
	Stats = database.Stats
	// QueryEvent contains information about an executed statement.
	QueryEvent = database.QueryEvent
	// QueryHook is invoked after each statement.
	QueryHook = database.QueryHook
	// DriverError is a statement failure reported by the database server.
	DriverError = database.DriverError

	// Logger is the logging interface used by DB.
	Logger = logger.Logger
	// Tracer creates spans around statements.
	Tracer = tracer.Tracer
)

// Statement kinds.
const (
	QueryInsert = core.QueryInsert
	QueryUpdate = core.QueryUpdate
	QuerySelect = core.QuerySelect
	QueryDelete = core.QueryDelete
)

// Re-export core functions.
var (
	// Model declaration
	Column          = core.Column
	PrimaryKey      = core.PrimaryKey
	ForeignKey      = core.ForeignKey
	NewRegistry     = core.NewRegistry
	DefaultRegistry = core.DefaultRegistry
	Register        = core.Register
	MustRegister    = core.MustRegister
	RegisterStruct  = core.RegisterStruct
	Lookup          = core.Lookup
	Join            = core.Join
	MustJoin        = core.MustJoin

	// Expression builders
	Eq      = core.Eq
	Ne      = core.Ne
	Lt      = core.Lt
	Le      = core.Le
	Gt      = core.Gt
	Ge      = core.Ge
	Add     = core.Add
	Like    = core.Like
	Between = core.Between
	In      = core.In
	Assign  = core.Assign
	And     = core.And
	Or      = core.Or

	// Rows
	NewRow        = core.NewRow
	RowFromStruct = core.RowFromStruct

	// Configuration
	DefaultConfig = database.DefaultConfig
	LoadConfig    = database.LoadConfig

	// Logging and tracing
	NewSlogAdapter = logger.NewSlogAdapter
	NewOtelTracer  = tracer.NewOtelTracer
)

// Errors.
var (
	ErrStatementCompile    = core.ErrStatementCompile
	ErrUnknownField        = core.ErrUnknownField
	ErrUnknownColumn       = core.ErrUnknownColumn
	ErrForeignField        = core.ErrForeignField
	ErrDuplicateField      = core.ErrDuplicateField
	ErrMultiplePrimaryKeys = core.ErrMultiplePrimaryKeys
	ErrFieldBound          = core.ErrFieldBound
	ErrInvalidForeignKey   = core.ErrInvalidForeignKey
	ErrDuplicateModel      = core.ErrDuplicateModel
	ErrInvalidJoin         = core.ErrInvalidJoin
	ErrComposedModel       = core.ErrComposedModel
	ErrNilModel            = core.ErrNilModel
	ErrNoExecutor          = core.ErrNoExecutor
	ErrInvalidIdentifier   = core.ErrInvalidIdentifier
	ErrConnection          = database.ErrConnection
	ErrClosed              = database.ErrClosed

	// ErrUnsupportedDriver is returned for a driver without a registered dialect.
	ErrUnsupportedDriver = errors.New("unsupported driver")
)

// DB builds and runs statements for registered models.
// It is safe for concurrent use; statement state lives on the ModelQuery
// values returned by Model.
type DB struct {
	*core.DB
	conn *database.DB
}

type options struct {
	conn  []database.Option
	query []core.Option
}

// Option is a functional option for configuring DB.
type Option func(*options)

func connOption(opt database.Option) Option {
	return func(o *options) {
		o.conn = append(o.conn, opt)
	}
}

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option { return connOption(database.WithMaxOpenConns(n)) }

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option { return connOption(database.WithMaxIdleConns(n)) }

// WithConnMaxLifetime sets the maximum amount of time a connection may be reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return connOption(database.WithConnMaxLifetime(d))
}

// WithSensitiveFields replaces the column names whose literals are masked
// in logs, spans and hook events.
func WithSensitiveFields(fields ...string) Option {
	return connOption(database.WithSensitiveFields(fields...))
}

// WithTracer wraps each statement in a span.
func WithTracer(t Tracer) Option { return connOption(database.WithTracer(t)) }

// WithQueryHook sets a callback invoked after each statement.
func WithQueryHook(hook QueryHook) Option { return connOption(database.WithQueryHook(hook)) }

// WithMetrics registers statement counters and latency histograms on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return connOption(database.WithMetrics(reg))
}

// WithHealthCheck pings the pool every interval in the background.
func WithHealthCheck(interval time.Duration) Option {
	return connOption(database.WithHealthCheck(interval))
}

// WithDebug logs every statement with its SQL text.
func WithDebug(debug bool) Option { return connOption(database.WithDebug(debug)) }

// WithStatementTimeout bounds each statement.
func WithStatementTimeout(d time.Duration) Option {
	return connOption(database.WithStatementTimeout(d))
}

// WithCompileCacheCapacity bounds the number of memoized expressions.
func WithCompileCacheCapacity(capacity int) Option {
	return func(o *options) {
		o.query = append(o.query, core.WithCompileCacheCapacity(capacity))
	}
}

// WithLogger sets the logger for statements and compile failures.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.conn = append(o.conn, database.WithLogger(l))
		o.query = append(o.query, core.WithLogger(l))
	}
}

func collect(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func dialectFor(driverName string) (dialects.Dialect, error) {
	d, ok := dialects.Lookup(driverName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driverName)
	}
	return d, nil
}

// Open opens a connection pool for driverName ("mysql", "postgres",
// "sqlite") and escapes literals the way that database expects.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	d, err := dialectFor(driverName)
	if err != nil {
		return nil, err
	}
	o := collect(opts)
	conn, err := database.Open(driverName, dsn, o.conn...)
	if err != nil {
		return nil, err
	}
	return &DB{DB: core.NewDB(conn, d, o.query...), conn: conn}, nil
}

// OpenConfig opens a connection pool described by cfg.
func OpenConfig(cfg Config, opts ...Option) (*DB, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	o := collect(opts)
	conn, err := database.OpenConfig(cfg, o.conn...)
	if err != nil {
		return nil, err
	}
	return &DB{DB: core.NewDB(conn, d, o.query...), conn: conn}, nil
}

// Wrap builds a DB on an existing pool. Closing the DB closes sqlDB.
func Wrap(sqlDB *sql.DB, driverName string, opts ...Option) (*DB, error) {
	d, err := dialectFor(driverName)
	if err != nil {
		return nil, err
	}
	o := collect(opts)
	conn, err := database.Wrap(sqlDB, driverName, o.conn...)
	if err != nil {
		return nil, err
	}
	return &DB{DB: core.NewDB(conn, d, o.query...), conn: conn}, nil
}

// NewDB builds a DB on a custom executor. A nil escaper selects MySQL
// escaping. Connection options are ignored.
func NewDB(exec Executor, esc Escaper, opts ...Option) *DB {
	return &DB{DB: core.NewDB(exec, esc, collect(opts).query...)}
}

// SQLDB returns the underlying pool, or nil for a custom executor.
func (db *DB) SQLDB() *sql.DB {
	if db.conn == nil {
		return nil
	}
	return db.conn.SQLDB()
}

// Ping verifies a connection to the database is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Ping(ctx)
}

// Healthy reports the outcome of the last background health check.
func (db *DB) Healthy() bool {
	if db.conn == nil {
		return true
	}
	return db.conn.Healthy()
}

// Stats returns statement accounting.
func (db *DB) Stats() Stats {
	if db.conn == nil {
		return Stats{}
	}
	return db.conn.Stats()
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}
