package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlogLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{AddSource: true})
	logger := NewSlogLogger(slog.New(handler), Config{LogLevel: Info})

	logger.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "select count(*) from contact", 0
	}, nil)

	assert.NotContains(t, buf.String(), "logger/slog.go", "caller frame points at the adapter")
	assert.Contains(t, buf.String(), "logger/slog_test.go")
	assert.Contains(t, buf.String(), "rows=0")
}

func TestSlogLoggerOperation(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(buf, nil)), Config{LogLevel: Warn, SlowThreshold: 50 * time.Millisecond})
	ctx := WithOperation(context.Background(), Operation{Class: "Contact", Action: "delete", ID: "ABC123"})

	logger.Trace(ctx, time.Now(), func() (string, int64) {
		return "DELETE FROM contact", 1
	}, nil)
	assert.Empty(t, buf.String(), "fast statements are info")

	logger.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) {
		return "DELETE FROM contact", 1
	}, nil)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "operation.class=Contact operation.action=delete operation.id=ABC123")
	assert.Contains(t, buf.String(), "slow_threshold=50ms")
}
