// Package tracer provides the distributed tracing abstraction used around
// statement execution. It supports OpenTelemetry and custom implementations.
package tracer

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer defines the tracing interface.
type Tracer interface {
	// StartSpan starts a new tracing span with the given name
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span represents a tracing span that captures the execution of an operation.
type Span interface {
	// SetAttributes sets key-value attributes on the span
	SetAttributes(attrs ...attribute.KeyValue)
	// RecordError records an error that occurred during the span
	RecordError(err error)
	// SetStatus sets the status code and description of the span
	SetStatus(code codes.Code, description string)
	// End marks the span as complete
	End()
}

// NoopTracer is a tracer that does nothing.
// This is the default tracer used when no tracing is configured.
type NoopTracer struct{}

// StartSpan returns the context unchanged with a no-op span.
func (n *NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, &NoopSpan{}
}

// NoopSpan is a span that does nothing.
type NoopSpan struct{}

// SetAttributes does nothing.
func (n *NoopSpan) SetAttributes(_ ...attribute.KeyValue) {}

// RecordError does nothing.
func (n *NoopSpan) RecordError(_ error) {}

// SetStatus does nothing.
func (n *NoopSpan) SetStatus(_ codes.Code, _ string) {}

// End does nothing.
func (n *NoopSpan) End() {}

// OtelTracer wraps an OpenTelemetry tracer to implement the Tracer interface.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer creates a new OpenTelemetry tracer adapter.
// The provided tracer must not be nil.
func NewOtelTracer(tracer trace.Tracer) *OtelTracer {
	return &OtelTracer{tracer: tracer}
}

// StartSpan starts a new client-kind OpenTelemetry span.
func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	return ctx, &OtelSpan{span: span}
}

// OtelSpan wraps an OpenTelemetry span.
type OtelSpan struct {
	span trace.Span
}

// SetAttributes sets OpenTelemetry attributes on the span.
func (s *OtelSpan) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// RecordError records an error on the OpenTelemetry span.
func (s *OtelSpan) RecordError(err error) {
	s.span.RecordError(err)
}

// SetStatus sets the status of the OpenTelemetry span.
func (s *OtelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

// End completes the OpenTelemetry span.
func (s *OtelSpan) End() {
	s.span.End()
}

// StatementMetadata describes one executed statement for tracing purposes.
// It follows OpenTelemetry database semantic conventions.
type StatementMetadata struct {
	// SQL is the statement text, already sanitized for export
	SQL string
	// Duration is how long the statement took to execute
	Duration time.Duration
	// RowsAffected is the number of rows affected or returned
	RowsAffected int64
	// Error is any error that occurred during execution
	Error error
	// Database is the database system name (mysql, postgres, sqlite)
	Database string
	// Operation is the statement kind (SELECT, INSERT, UPDATE, DELETE)
	Operation string
	// Table is the target table (optional)
	Table string
}

// AddStatementAttributes adds database semantic convention attributes to a span.
// See: https://opentelemetry.io/docs/specs/semconv/database/
func AddStatementAttributes(span Span, meta *StatementMetadata) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", meta.Database),
		attribute.String("db.statement", meta.SQL),
		attribute.String("db.operation", meta.Operation),
		attribute.Float64("db.duration_ms", float64(meta.Duration.Microseconds())/1000.0),
	}

	if meta.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", meta.Table))
	}

	if meta.RowsAffected > 0 {
		attrs = append(attrs, attribute.Int64("db.rows_affected", meta.RowsAffected))
	}

	span.SetAttributes(attrs...)

	if meta.Error != nil {
		span.RecordError(meta.Error)
		span.SetStatus(codes.Error, meta.Error.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// DetectOperation detects the statement kind from the SQL text.
// Returns one of: SELECT, INSERT, UPDATE, DELETE, or UNKNOWN.
func DetectOperation(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))
	switch {
	case strings.HasPrefix(sql, "SELECT"), strings.HasPrefix(sql, "WITH"):
		return "SELECT"
	case strings.HasPrefix(sql, "INSERT"):
		return "INSERT"
	case strings.HasPrefix(sql, "UPDATE"):
		return "UPDATE"
	case strings.HasPrefix(sql, "DELETE"):
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// DetectTable extracts the target table of a generated statement:
// the INSERT/UPDATE/DELETE target, or the first table after FROM for SELECT.
func DetectTable(sql string) string {
	words := strings.Fields(sql)
	if len(words) < 2 {
		return ""
	}

	var table string
	switch strings.ToUpper(words[0]) {
	case "INSERT":
		if len(words) >= 3 && strings.EqualFold(words[1], "into") {
			table = words[2]
		}
	case "UPDATE", "DELETE":
		table = words[1]
	case "SELECT":
		for i, w := range words {
			if strings.EqualFold(w, "from") && i+1 < len(words) {
				table = words[i+1]
				break
			}
		}
	}

	return strings.TrimSuffix(table, ",")
}
