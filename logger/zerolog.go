package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/habanero-go/habanero/utils"
)

// ZerologLogger reports through a zerolog logger
type ZerologLogger struct {
	Config
	Logger zerolog.Logger
}

// NewZerologLogger creates a new logger using zerolog
func NewZerologLogger(logger zerolog.Logger, config Config) Interface {
	return &ZerologLogger{Config: config, Logger: logger}
}

// NewConsoleZerologLogger human readable output on stdout
func NewConsoleZerologLogger(config Config) Interface {
	out := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stdout
		w.TimeFormat = time.RFC3339
		w.NoColor = !config.Colorful
	})
	return NewZerologLogger(zerolog.New(out).Level(ZerologLevel(config.LogLevel)).With().Timestamp().Logger(), config)
}

// LogMode sets the log level
func (l *ZerologLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *ZerologLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.send(ctx, l.Logger.Info().Interface("data", data), msg)
	}
}

func (l *ZerologLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.send(ctx, l.Logger.Warn().Interface("data", data), msg)
	}
}

func (l *ZerologLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.send(ctx, l.Logger.Error().Interface("data", data), msg)
	}
}

// Trace logs statement execution
func (l *ZerologLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	ev, ok := l.traceEvent(ctx, begin, fc, err)
	if !ok {
		return
	}

	var event *zerolog.Event
	switch {
	case ev.Level == Error:
		event = l.Logger.Error().Err(ev.Err)
	case ev.Slow != 0:
		event = l.Logger.Warn().Dur("slow_threshold", ev.Slow)
	default:
		event = l.Logger.Info()
	}

	event = event.Dur("elapsed", ev.Elapsed).Str("sql", ev.SQL)
	if ev.Rows != -1 {
		event = event.Int64("rows", ev.Rows)
	}
	l.send(ctx, event, "statement executed")
}

// send adds the caller and the operation carried by ctx, event is nil when disabled
func (l *ZerologLogger) send(ctx context.Context, event *zerolog.Event, msg string) {
	if event == nil {
		return
	}

	event = event.Str("file", utils.FileWithLineNum())
	if op, ok := OperationFrom(ctx); ok {
		event = event.Object("operation", zerologOperation(op))
	}
	if ctx != nil {
		event = event.Ctx(ctx)
	}
	event.Msg(msg)
}

type zerologOperation Operation

func (op zerologOperation) MarshalZerologObject(e *zerolog.Event) {
	e.Str("class", op.Class).Str("action", op.Action)
	if op.ID != "" {
		e.Str("id", op.ID)
	}
}

// ZerologLevel the zerolog level enabling the messages of level
func ZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case Silent:
		return zerolog.Disabled
	case Error:
		return zerolog.ErrorLevel
	case Warn:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
