// Package coderun exposes the sandboxed Go interpreter as a capability.
package coderun

import (
	"context"
	"errors"
	"strings"

	"github.com/hupe1980/reactmesh/code"
	"github.com/hupe1980/reactmesh/tool"
)

// Name is the tool name exposed to the model.
const Name = "go_interpreter"

const description = "A Go interpreter. Use this to execute Go code for calculations or data processing. " +
	"Input should be valid Go: either a complete program (package main with func main) or a sequence of statements. " +
	"If you want to see the output of a value, you should print it out with `fmt.Println(...)`. " +
	"Only a safe subset of the standard library can be imported."

// Tool runs Go snippets through a code.Executor.
type Tool struct {
	exec code.Executor
}

var _ tool.Tool = (*Tool)(nil)

// New creates the tool; a nil executor selects the default yaegi sandbox.
func New(exec code.Executor) *Tool {
	if exec == nil {
		exec = code.NewYaegiExecutor()
	}
	return &Tool{exec: exec}
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return Name }

// Description implements tool.Tool.
func (t *Tool) Description() string { return description }

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{"type": "string", "description": "Go source to execute"},
		},
		"required": []string{"code"},
	}
}

// Call implements tool.Tool. The result is the captured output, stderr
// labelled separately; the value of a trailing expression is appended when present.
func (t *Tool) Call(ctx context.Context, args map[string]any) (any, error) {
	if err := tool.ValidateArguments(t.Parameters(), args); err != nil {
		return nil, &tool.ToolError{Tool: Name, Message: err.Error(), Code: tool.CodeValidation, Err: err}
	}

	src := stripFences(args["code"].(string))

	res, err := t.exec.Execute(ctx, src)
	if err != nil {
		msg := err.Error()
		if out := output(res); out != "" {
			msg = out + "\n" + msg
		}
		errCode := tool.CodeExecution
		if errors.Is(err, code.ErrForbiddenImport) {
			errCode = tool.CodeValidation
		}
		return nil, &tool.ToolError{Tool: Name, Message: msg, Code: errCode, Err: err}
	}

	out := output(res)
	if res.Value != "" {
		out = appendLine(out, res.Value)
	}

	return out, nil
}

// output renders stdout followed by a labelled stderr section.
func output(res code.Result) string {
	out := res.Stdout
	if res.Stderr != "" {
		out = appendLine(out, "stderr:\n"+res.Stderr)
	}
	return out
}

func appendLine(out, s string) string {
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + s
}

// stripFences removes a surrounding markdown code fence.
func stripFences(src string) string {
	s := strings.TrimSpace(src)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
