package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopLogger(_ *testing.T) {
	l := &NoopLogger{}

	// Should not panic
	l.Debug("debug", "key", "value")
	l.Info("info", "key", "value")
	l.Warn("warn", "key", "value")
	l.Error("error", "key", "value")
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := NewSlogAdapter(slog.New(handler))

	l.Debug("debug message", "sql", "select 1")
	l.Info("info message", "rows_affected", 3)
	l.Warn("warn message")
	l.Error("error message", "error", "boom")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, `sql="select 1"`)
	assert.Contains(t, out, "rows_affected=3")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "error=boom")
	assert.Equal(t, 4, strings.Count(out, "\n"))
}

func TestSlogAdapter_Enabled(t *testing.T) {
	handler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	l := NewSlogAdapter(slog.New(handler))

	assert.False(t, l.Enabled(slog.LevelDebug))
	assert.True(t, l.Enabled(slog.LevelError))
}

func TestNewSlogAdapter_NilFallsBackToDefault(t *testing.T) {
	l := NewSlogAdapter(nil)
	assert.NotNil(t, l.logger)
}

func TestOrNoop(t *testing.T) {
	assert.IsType(t, &NoopLogger{}, OrNoop(nil))

	a := NewSlogAdapter(nil)
	assert.Same(t, a, OrNoop(a))
}
