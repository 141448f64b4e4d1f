// Package tool implements the capability subsystem that lets the agent loop
// invoke structured capabilities (APIs, computations, remote tools) with schema
// validated arguments, consistent error handling and metadata for model guidance.
package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Tool is a named, described capability with an input schema and a call
// interface. Local implementations and remote proxies share it.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Be safe for concurrent use; the action stage runs calls in parallel
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description is shown verbatim to the model in the system prompt.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with structured arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodePanic      = "PANIC"
)

// ErrToolNotFound is matched by errors returned for unknown capability names.
var ErrToolNotFound = errors.New("tool not found")

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
	Err     error  `json:"-"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// NotFoundError reports a request for a capability absent from the registry.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s is not a valid tool, try one of [%s].", e.Name, strings.Join(e.Available, ", "))
}

// Unwrap makes errors.Is(err, ErrToolNotFound) hold.
func (e *NotFoundError) Unwrap() error { return ErrToolNotFound }
