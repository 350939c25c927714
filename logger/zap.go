package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/habanero-go/habanero/utils"
)

// ZapLogger reports through a zap logger, the operation carried by the
// context becomes an "operation" object field
type ZapLogger struct {
	Config
	Logger *zap.Logger
}

// NewZapLogger creates a new logger using zap
func NewZapLogger(logger *zap.Logger, config Config) Interface {
	return &ZapLogger{Config: config, Logger: logger}
}

// NewProductionZapLogger JSON logger on stderr at the configured level
func NewProductionZapLogger(config Config) (Interface, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(ZapLevel(config.LogLevel))

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(logger, config), nil
}

// LogMode sets the log level
func (l *ZapLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *ZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.write(ctx, zapcore.InfoLevel, msg, zap.Any("data", data))
	}
}

func (l *ZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.write(ctx, zapcore.WarnLevel, msg, zap.Any("data", data))
	}
}

func (l *ZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.write(ctx, zapcore.ErrorLevel, msg, zap.Any("data", data))
	}
}

// Trace logs statement execution
func (l *ZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	ev, ok := l.traceEvent(ctx, begin, fc, err)
	if !ok {
		return
	}

	fields := []zap.Field{zap.Duration("elapsed", ev.Elapsed), zap.String("sql", ev.SQL)}
	if ev.Rows != -1 {
		fields = append(fields, zap.Int64("rows", ev.Rows))
	}

	level := zapcore.InfoLevel
	switch {
	case ev.Level == Error:
		level = zapcore.ErrorLevel
		fields = append(fields, zap.Error(ev.Err))
	case ev.Slow != 0:
		level = zapcore.WarnLevel
		fields = append(fields, zap.Duration("slow_threshold", ev.Slow))
	}
	l.write(ctx, level, ev.message(), fields...)
}

func (l *ZapLogger) write(ctx context.Context, level zapcore.Level, msg string, fields ...zap.Field) {
	ce := l.Logger.Check(level, msg)
	if ce == nil {
		return
	}

	fields = append(fields, zap.String("file", utils.FileWithLineNum()))
	if op, ok := OperationFrom(ctx); ok {
		fields = append(fields, zap.Object("operation", zapOperation(op)))
	}
	ce.Write(fields...)
}

type zapOperation Operation

func (op zapOperation) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("class", op.Class)
	enc.AddString("action", op.Action)
	if op.ID != "" {
		enc.AddString("id", op.ID)
	}
	return nil
}

// ZapLevel the zap level enabling the messages of level
func ZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case Silent:
		return zapcore.DPanicLevel
	case Error:
		return zapcore.ErrorLevel
	case Warn:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
