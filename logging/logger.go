// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers domain specific helpers for capability
// invocations and backend calls.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hupe1980/reactmesh/config"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name. An empty string selects info.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, config.NewConfigError("log_level", s, "must be one of debug, info, warn, error")
	}
}

func (l LogLevel) slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger defines the minimal logging interface.
// This allows users to provide their own logger implementation or use the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// LoggerConfig configures construction of a slog backed Logger.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // json or text
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultLoggerConfig returns a baseline text info level configuration on stderr.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "text", Output: os.Stderr}
}

// NewLogger builds a Logger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) Logger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.slog(), AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l := slog.New(handler)
	if cfg.Component != "" {
		l = l.With(slog.String("component", cfg.Component))
	}

	return &SlogAdapter{Logger: l}
}

// FromConfig builds a Logger from the log_level and log_format settings.
func FromConfig(c config.Config, out io.Writer) (Logger, error) {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	switch c.LogFormat {
	case "", "text", "json":
	default:
		return nil, config.NewConfigError("log_format", c.LogFormat, "must be text or json")
	}

	return NewLogger(&LoggerConfig{Level: level, Format: c.LogFormat, Output: out}), nil
}

// With returns a logger carrying the given attributes. Loggers that are not
// slog backed are returned unchanged.
func With(l Logger, args ...any) Logger {
	if s, ok := l.(*SlogAdapter); ok {
		return &SlogAdapter{Logger: s.Logger.With(args...)}
	}
	return l
}

// LogToolCall records execution details for a capability invocation.
func LogToolCall(l Logger, tool, requestID string, dur time.Duration, err error) {
	if err != nil {
		l.Warn("tool.call.error", "tool", tool, "request_id", requestID, "duration", dur, "error", err.Error())
		return
	}
	l.Debug("tool.call.success", "tool", tool, "request_id", requestID, "duration", dur)
}

// LogModelCall records backend call latency, token usage and outcome.
func LogModelCall(l Logger, model string, tokens int, dur time.Duration, err error) {
	if err != nil {
		l.Error("model.call.error", "model", model, "duration", dur, "error", err.Error())
		return
	}
	l.Debug("model.call.success", "model", model, "token_count", tokens, "duration", dur)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// OrNoOp returns l, or a NoOpLogger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

var (
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = NoOpLogger{}
)
