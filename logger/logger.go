package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/habanero-go/habanero/utils"
)

// ErrRecordNotFound record not found error
var ErrRecordNotFound = errors.New("record not found")

// Colors
const (
	Reset      = "\033[0m"
	Red        = "\033[31m"
	Green      = "\033[32m"
	Yellow     = "\033[33m"
	Magenta    = "\033[35m"
	BlueBold   = "\033[34;1m"
	RedBold    = "\033[31;1m"
	YellowBold = "\033[33;1m"
)

// LogLevel log level
type LogLevel int

const (
	// Silent silent log level
	Silent LogLevel = iota + 1
	// Error error log level
	Error
	// Warn warn log level
	Warn
	// Info info log level
	Info
)

// ParseLevel converts a textual level such as "warn" into a LogLevel
func ParseLevel(level string) (LogLevel, error) {
	switch level {
	case "silent":
		return Silent, nil
	case "error", "":
		return Error, nil
	case "warn", "warning":
		return Warn, nil
	case "info":
		return Info, nil
	}
	return Silent, fmt.Errorf("unknown log level %q", level)
}

// Writer log writer interface
type Writer interface {
	Printf(string, ...interface{})
}

// Config logger config
type Config struct {
	SlowThreshold             time.Duration
	Colorful                  bool
	IgnoreRecordNotFoundError bool
	ParameterizedQueries      bool
	LogLevel                  LogLevel
}

// Interface logger interface
type Interface interface {
	LogMode(LogLevel) Interface
	Info(context.Context, string, ...interface{})
	Warn(context.Context, string, ...interface{})
	Error(context.Context, string, ...interface{})
	Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error)
}

var (
	// Discard logger will print any log to io.Discard
	Discard = New(log.New(io.Discard, "", log.LstdFlags), Config{})
	// Default default logger
	Default = New(StdWriter(), Config{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      Warn,
		Colorful:      true,
	})
)

// StdWriter writer printing to stdout
func StdWriter() Writer {
	return log.New(os.Stdout, "\r\n", log.LstdFlags)
}

// New initialize logger
func New(writer Writer, config Config) Interface {
	var (
		infoStr      = "%s\n[info] "
		warnStr      = "%s\n[warn] "
		errStr       = "%s\n[error] "
		traceStr     = "%s\n[%.3fms] [rows:%v] %s"
		traceWarnStr = "%s %s\n[%.3fms] [rows:%v] %s"
		traceErrStr  = "%s %s\n[%.3fms] [rows:%v] %s"
	)

	if config.Colorful {
		infoStr = Green + "%s\n" + Reset + Green + "[info] " + Reset
		warnStr = BlueBold + "%s\n" + Reset + Magenta + "[warn] " + Reset
		errStr = Magenta + "%s\n" + Reset + Red + "[error] " + Reset
		traceStr = Green + "%s\n" + Reset + Yellow + "[%.3fms] " + BlueBold + "[rows:%v]" + Reset + " %s"
		traceWarnStr = Green + "%s " + Yellow + "%s\n" + Reset + RedBold + "[%.3fms] " + Yellow + "[rows:%v]" + Magenta + " %s" + Reset
		traceErrStr = RedBold + "%s " + YellowBold + "%s\n" + Reset + Yellow + "[%.3fms] " + BlueBold + "[rows:%v]" + Reset + " %s"
	}

	return &logger{
		Writer:       writer,
		Config:       config,
		infoStr:      infoStr,
		warnStr:      warnStr,
		errStr:       errStr,
		traceStr:     traceStr,
		traceWarnStr: traceWarnStr,
		traceErrStr:  traceErrStr,
	}
}

type logger struct {
	Writer
	Config
	infoStr, warnStr, errStr            string
	traceStr, traceErrStr, traceWarnStr string
}

// LogMode log mode
func (l *logger) LogMode(level LogLevel) Interface {
	newlogger := *l
	newlogger.LogLevel = level
	return &newlogger
}

// Info print info
func (l *logger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.Printf(l.infoStr+msg, append([]interface{}{caller(ctx)}, data...)...)
	}
}

// Warn print warn messages
func (l *logger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.Printf(l.warnStr+msg, append([]interface{}{caller(ctx)}, data...)...)
	}
}

// Error print error messages
func (l *logger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.Printf(l.errStr+msg, append([]interface{}{caller(ctx)}, data...)...)
	}
}

// Trace print sql message
func (l *logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	ev, ok := l.traceEvent(ctx, begin, fc, err)
	if !ok {
		return
	}

	switch {
	case ev.Level == Error:
		l.Printf(l.traceErrStr, caller(ctx), ev.Err, ev.milliseconds(), rowsString(ev.Rows), ev.SQL)
	case ev.Slow != 0:
		l.Printf(l.traceWarnStr, caller(ctx), fmt.Sprintf("SLOW SQL >= %v", ev.Slow), ev.milliseconds(), rowsString(ev.Rows), ev.SQL)
	default:
		l.Printf(l.traceStr, caller(ctx), ev.milliseconds(), rowsString(ev.Rows), ev.SQL)
	}
}

// caller source line of the caller, followed by the operation carried by ctx
func caller(ctx context.Context) string {
	file := utils.FileWithLineNum()
	if op, ok := OperationFrom(ctx); ok {
		return file + " [" + op.String() + "]"
	}
	return file
}

// ParamsFilter is implemented by loggers that may hide statement parameters
type ParamsFilter interface {
	ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{})
}

// ParamsFilter drops statement parameters when queries should be logged parameterized
func (l *logger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.Config.ParameterizedQueries {
		return sql, nil
	}
	return sql, params
}

func rowsString(rows int64) interface{} {
	if rows == -1 {
		return "-"
	}
	return rows
}

// Formats accepted by NewFormat
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatSlog    = "slog"
	FormatLogrus  = "logrus"
)

// NewFormat builds the logger for a configured output format: text through
// the standard library log, json through zap, console through zerolog,
// slog as JSON records and logrus as text. Every format writes to stdout
// except json which follows zap's production config.
func NewFormat(format string, config Config) (Interface, error) {
	switch format {
	case FormatText, "":
		return New(StdWriter(), config), nil
	case FormatJSON:
		return NewProductionZapLogger(config)
	case FormatConsole:
		return NewConsoleZerologLogger(config), nil
	case FormatSlog:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)), config), nil
	case FormatLogrus:
		return NewTextLogrusLogger(config), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}
