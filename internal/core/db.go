package core

import (
	"context"

	"github.com/coregx/verso/internal/cache"
	"github.com/coregx/verso/internal/dialects"
	"github.com/coregx/verso/internal/logger"
)

// DB ties an Executor to a Compiler. It holds no per-statement state and
// is safe for concurrent use; statements are built on ModelQuery values.
type DB struct {
	executor      Executor
	escaper       Escaper
	compiler      *Compiler
	cacheCapacity int
	logger        logger.Logger
}

// Option is a functional option for configuring DB.
type Option func(*DB)

// WithLogger sets the logger used for compile and execution failures.
func WithLogger(l logger.Logger) Option {
	return func(db *DB) {
		db.logger = logger.OrNoop(l)
	}
}

// WithCompileCacheCapacity bounds the number of memoized expressions.
func WithCompileCacheCapacity(capacity int) Option {
	return func(db *DB) {
		db.cacheCapacity = capacity
	}
}

// NewDB creates a DB running statements on exec and escaping literals with
// esc. A nil escaper selects MySQL escaping.
func NewDB(exec Executor, esc Escaper, opts ...Option) *DB {
	if esc == nil {
		esc = &dialects.MySQLDialect{}
	}
	db := &DB{
		executor:      exec,
		escaper:       esc,
		cacheCapacity: cache.DefaultCapacity,
		logger:        &logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(db)
	}
	db.compiler = NewCompiler(db.escaper, db.cacheCapacity)
	return db
}

// Compiler returns the statement compiler.
func (db *DB) Compiler() *Compiler {
	return db.compiler
}

// Where starts a query on m filtered by conds.
func (db *DB) Where(m *Model, conds ...Condition) *ModelQuery {
	return db.Model(m).Where(conds...)
}

// Create inserts one row of m.
func (db *DB) Create(ctx context.Context, m *Model, conds ...Condition) (*Row, error) {
	return db.Model(m).Create(ctx, conds...)
}

// CreateFrom inserts one row of m from a db-tagged struct.
func (db *DB) CreateFrom(ctx context.Context, m *Model, src any) (*Row, error) {
	return db.Model(m).CreateFrom(ctx, src)
}

// Select selects fields of every row of m.
func (db *DB) Select(ctx context.Context, m *Model, fields ...*Field) (*SelectResult, error) {
	return db.Model(m).Select(ctx, fields...)
}
