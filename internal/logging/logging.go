// Package logging wraps zerolog with the levels and formats the server supports.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger so callers share one construction path.
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a logger writing to stderr. Format "json" emits one JSON
// object per line, anything else uses the human readable console writer.
func NewLogger(level, format string) *Logger {
	var w io.Writer = os.Stderr
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}
	return NewLoggerWithOutput(level, w)
}

// NewLoggerWithOutput creates a logger writing to a specific output
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	logger := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: logger}
}

// NewSilentLogger creates a logger that discards all output
func NewSilentLogger() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// CronLogger adapts the logger to the Info/Error interface expected by the
// job scheduler.
type CronLogger struct {
	l *Logger
}

// ForCron returns an adapter for the job scheduler.
func (l *Logger) ForCron() CronLogger {
	return CronLogger{l: l}
}

// Info logs scheduler bookkeeping at debug level; it is chatty.
func (c CronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

// Error logs a scheduler failure, including recovered job panics.
func (c CronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
