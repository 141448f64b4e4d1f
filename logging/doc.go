// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the agent loop, its stages and the capabilities use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - LogToolCall / LogModelCall helpers emitting dotted event names
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "json"})
//	a, err := agent.New(cfg, func(o *agent.Options) { o.Logger = logger })
package logging
