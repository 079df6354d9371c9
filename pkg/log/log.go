package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

// Level represents log level
type Level string

const (
	DebugLevel    Level = "debug"
	InfoLevel     Level = "info"
	WarnLevel     Level = "warn"
	ErrorLevel    Level = "error"
	CriticalLevel Level = "critical"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	// Set log level
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel, CriticalLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithUser creates a child logger with user_id field
func WithUser(userID int64) zerolog.Logger {
	return Logger.With().Int64("user_id", userID).Logger()
}

// WithSession creates a child logger with session_id field
func WithSession(sessionID string) zerolog.Logger {
	return Logger.With().Str("session_id", sessionID).Logger()
}

// WithRequest creates a child logger with request_id field
func WithRequest(requestID string) zerolog.Logger {
	return Logger.With().Str("request_id", requestID).Logger()
}

// Helper functions for common logging patterns
func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}

// Critical logs at error level tagged severity=critical; zerolog has no
// distinct critical level, so the taxonomy's critical entries are error
// entries carrying this field.
func Critical(msg string) {
	Logger.Error().Str("severity", "critical").Msg(msg)
}

// Timer measures a named operation. Any duration over 5s is logged at
// warn; on failure (via StopWithErr) the timer reports the error instead.
type Timer struct {
	op    string
	start time.Time
	log   zerolog.Logger
}

// NewTimer starts timing op, reporting through the given logger. A zero
// zerolog.Logger discards its output; there is no fallback to the global
// Logger.
func NewTimer(log zerolog.Logger, op string) *Timer {
	return &Timer{op: op, start: time.Now(), log: log}
}

// Stop reports the elapsed duration, logging at warn if it exceeded 5s.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	t.report(d, nil)
	return d
}

// StopWithErr reports the elapsed duration and the failure that ended the
// operation.
func (t *Timer) StopWithErr(err error) time.Duration {
	d := time.Since(t.start)
	t.report(d, err)
	return d
}

func (t *Timer) report(d time.Duration, err error) {
	ev := t.log
	if err != nil {
		ev.Error().Str("op", t.op).Dur("duration", d).Err(err).Msg("operation failed")
		return
	}
	if d > 5*time.Second {
		ev.Warn().Str("op", t.op).Dur("duration", d).Msg("operation exceeded perf threshold")
		return
	}
	ev.Debug().Str("op", t.op).Dur("duration", d).Msg("operation completed")
}
