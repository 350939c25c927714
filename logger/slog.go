package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/habanero-go/habanero/utils"
)

// LogValue groups the operation under its own key
func (op Operation) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 3)
	if op.Class != "" {
		attrs = append(attrs, slog.String("class", op.Class))
	}
	if op.Action != "" {
		attrs = append(attrs, slog.String("action", op.Action))
	}
	if op.ID != "" {
		attrs = append(attrs, slog.String("id", op.ID))
	}
	return slog.GroupValue(attrs...)
}

type slogLogger struct {
	Config
	logger *slog.Logger
}

// NewSlogLogger reports through logger, the record source is the caller outside this module
func NewSlogLogger(logger *slog.Logger, config Config) Interface {
	return &slogLogger{Config: config, logger: logger}
}

func (l *slogLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *slogLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.log(ctx, slog.LevelInfo, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.log(ctx, slog.LevelWarn, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.log(ctx, slog.LevelError, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	ev, ok := l.traceEvent(ctx, begin, fc, err)
	if !ok {
		return
	}

	attrs := []any{slog.Duration("elapsed", ev.Elapsed), slog.String("sql", ev.SQL)}
	if ev.Rows != -1 {
		attrs = append(attrs, slog.Int64("rows", ev.Rows))
	}

	level := slog.LevelInfo
	switch {
	case ev.Level == Error:
		level = slog.LevelError
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
	case ev.Slow != 0:
		level = slog.LevelWarn
		attrs = append(attrs, slog.Duration("slow_threshold", ev.Slow))
	}
	l.log(ctx, level, "statement executed", attrs...)
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}

	r := slog.NewRecord(time.Now(), level, msg, utils.CallerFrame().PC)
	if op, ok := OperationFrom(ctx); ok {
		r.AddAttrs(slog.Any("operation", op))
	}
	r.Add(args...)
	_ = l.logger.Handler().Handle(ctx, r)
}
