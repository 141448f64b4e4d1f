package tool

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Func is the signature of a function exposed as a tool.
type Func func(ctx context.Context, args map[string]any) (any, error)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Validates model supplied arguments against the JSON schema before execution
//   - Normalizes error handling so callers receive *ToolError with consistent codes:
//     VALIDATION_ERROR  -> schema / argument mismatch
//     EXECUTION_ERROR   -> underlying function returned an error (non-ToolError)
//     (custom codes preserved if the function returns *ToolError directly)
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          Func
}

var _ Tool = (*FunctionTool)(nil)

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(name, description string, parameters map[string]any, fn Func) *FunctionTool {
	return &FunctionTool{name: name, description: description, parameters: parameters, fn: fn}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using reflection.
func NewFunctionToolFromStruct(name, description string, structType any, fn Func) *FunctionTool {
	return NewFunctionTool(name, description, CreateSchema(structType), fn)
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args against the declared schema then invokes the function.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	info := CallInfoFromContext(ctx)
	logger := info.Logger
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "request_id", info.RequestID)

	if err := ValidateArguments(t.parameters, args); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Err:     err,
		}
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			return nil, toolErr
		}

		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: CodeExecution, Err: err}
	}

	logger.Debug("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
