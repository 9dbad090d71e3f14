// Package logger provides a structured, module-aware logging system built on Go's standard log/slog.
//
// Components receive a Logger through their constructors and scope it with Module:
//
//	centralLogger, err := logger.NewCentralLogger(&settings.Logging)
//	if err != nil {
//	    return err
//	}
//	defer centralLogger.Close()
//
//	log := centralLogger.Module("classifier")
//	log.Info("prediction received",
//	    logger.String("label", pred.Label),
//	    logger.Float64("score", pred.Score))
//
// Console output is human-readable text, file output is JSON. Per-module levels
// are configured under logging.module_levels.
//
// Tests use NewSlogLogger with a buffer or io.Discard.
package logger

import (
	"context"
	"time"
)

// LogLevel names a severity in configuration and in Logger.Log.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

const (
	errorKey   = "error"
	moduleKey  = "module"
	traceIDKey = "trace_id"
)

// Field is one structured key/value pair.
type Field struct {
	Key   string
	Value any
}

// Logger is what components hold. Obtain one with Global().Module(name).
type Logger interface {
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)

	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger

	Flush() error
}

func String(key, value string) Field         { return Field{key, value} }
func Int(key string, value int) Field        { return Field{key, value} }
func Int64(key string, value int64) Field    { return Field{key, value} }
func Bool(key string, value bool) Field      { return Field{key, value} }
func Time(key string, value time.Time) Field { return Field{key, value} }

// Float64 values are rounded to three decimals on output.
func Float64(key string, value float64) Field { return Field{key, value} }

// Duration values render like "1.5s", rounded to the millisecond.
func Duration(key string, value time.Duration) Field { return Field{key, value} }

// Any takes values without a typed helper; they are rendered by slog.
func Any(key string, value any) Field { return Field{key, value} }

// Error always uses the key "error". A nil error logs as null.
func Error(err error) Field {
	if err == nil {
		return Field{errorKey, nil}
	}
	return Field{errorKey, err.Error()}
}
