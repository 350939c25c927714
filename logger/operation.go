package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Operation the business object step a statement runs for
type Operation struct {
	// Class name of the business object class
	Class string
	// Action insert, update, delete, load, lock, unlock or sql
	Action string
	// ID identity of the object, empty for collection loads
	ID string
}

func (op Operation) String() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{op.Action, op.Class, op.ID} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

type operationKey struct{}

// WithOperation returns a copy of ctx carrying op, loggers attach it to the
// statements traced with the returned context
func WithOperation(ctx context.Context, op Operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFrom the operation carried by ctx
func OperationFrom(ctx context.Context) (Operation, bool) {
	if ctx == nil {
		return Operation{}, false
	}
	op, ok := ctx.Value(operationKey{}).(Operation)
	return op, ok
}

// traceEvent a finished statement that passed the level and threshold checks
type traceEvent struct {
	Level   LogLevel
	SQL     string
	Rows    int64
	Elapsed time.Duration
	Err     error
	// Slow the threshold exceeded, zero for statements in time
	Slow time.Duration
	Op   Operation
}

// traceEvent classifies a finished statement, false when c drops it.
// fc only runs for statements that are logged.
func (c Config) traceEvent(ctx context.Context, begin time.Time, fc func() (string, int64), err error) (traceEvent, bool) {
	if c.LogLevel <= Silent {
		return traceEvent{}, false
	}

	ev := traceEvent{Elapsed: time.Since(begin), Err: err}
	switch {
	case err != nil && c.LogLevel >= Error && (!errors.Is(err, ErrRecordNotFound) || !c.IgnoreRecordNotFoundError):
		ev.Level = Error
	case c.SlowThreshold != 0 && ev.Elapsed > c.SlowThreshold && c.LogLevel >= Warn:
		ev.Level, ev.Slow = Warn, c.SlowThreshold
	case c.LogLevel >= Info:
		ev.Level = Info
	default:
		return traceEvent{}, false
	}

	ev.SQL, ev.Rows = fc()
	ev.Op, _ = OperationFrom(ctx)
	return ev, true
}

func (ev traceEvent) message() string {
	msg := "statement executed"
	if ev.Slow != 0 {
		msg = fmt.Sprintf("SLOW SQL >= %v", ev.Slow)
	}
	if op := ev.Op.String(); op != "" {
		msg = op + ": " + msg
	}
	return msg
}

func (ev traceEvent) milliseconds() float64 {
	return float64(ev.Elapsed.Nanoseconds()) / 1e6
}
