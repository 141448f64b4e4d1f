// Package code runs untrusted Go snippets inside an embedded interpreter with
// a restricted standard library.
package code

import "context"

// Result is the outcome of one execution.
type Result struct {
	// Stdout collects everything the snippet printed.
	Stdout string `json:"stdout"`
	// Stderr collects diagnostics written to standard error.
	Stderr string `json:"stderr,omitempty"`
	// Value is the formatted value of the last expression, if any.
	Value string `json:"value,omitempty"`
}

// Executor defines the interface for executing code snippets.
type Executor interface {
	// Execute runs the given code snippet and returns the output or an error.
	Execute(ctx context.Context, src string) (Result, error)
}
