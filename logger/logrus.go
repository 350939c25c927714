package logger

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/habanero-go/habanero/utils"
)

// LogrusLogger reports through a logrus logger, operation fields are
// prefixed "op_" so they do not clash with the caller's fields
type LogrusLogger struct {
	Config
	Logger *logrus.Logger
}

// NewLogrusLogger creates a new logger using logrus
func NewLogrusLogger(logger *logrus.Logger, config Config) Interface {
	return &LogrusLogger{Config: config, Logger: logger}
}

// NewTextLogrusLogger logrus text output on stdout at the configured level
func NewTextLogrusLogger(config Config) Interface {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetLevel(LogrusLevel(config.LogLevel))
	base.SetFormatter(&logrus.TextFormatter{DisableColors: !config.Colorful, FullTimestamp: true})
	return NewLogrusLogger(base, config)
}

// LogMode sets the log level
func (l *LogrusLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.entry(ctx, logrus.Fields{"data": data}).Info(msg)
	}
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.entry(ctx, logrus.Fields{"data": data}).Warn(msg)
	}
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.entry(ctx, logrus.Fields{"data": data}).Error(msg)
	}
}

// Trace logs statement execution
func (l *LogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	ev, ok := l.traceEvent(ctx, begin, fc, err)
	if !ok {
		return
	}

	fields := logrus.Fields{"elapsed_ms": ev.milliseconds(), "sql": ev.SQL}
	if ev.Rows != -1 {
		fields["rows"] = ev.Rows
	}
	entry := l.entry(ctx, fields)

	switch {
	case ev.Level == Error:
		entry.WithError(ev.Err).Error(ev.message())
	case ev.Slow != 0:
		entry.WithField("slow_threshold", ev.Slow.String()).Warn(ev.message())
	default:
		entry.Info(ev.message())
	}
}

func (l *LogrusLogger) entry(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	fields["file"] = utils.FileWithLineNum()
	if op, ok := OperationFrom(ctx); ok {
		fields["op_class"], fields["op_action"] = op.Class, op.Action
		if op.ID != "" {
			fields["op_id"] = op.ID
		}
	}

	entry := l.Logger.WithFields(fields)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

// LogrusLevel the logrus level enabling the messages of level
func LogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case Silent:
		return logrus.PanicLevel
	case Error:
		return logrus.ErrorLevel
	case Warn:
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}
