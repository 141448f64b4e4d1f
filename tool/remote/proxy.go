package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/reactmesh/tool"
)

// Tool forwards calls to a capability hosted by a remote server.
type Tool struct {
	client      *Client
	name        string
	description string
	params      map[string]any
}

var _ tool.Tool = (*Tool)(nil)

// NewTool wraps a listed remote capability.
func NewTool(client *Client, t mcpgo.Tool) *Tool {
	return &Tool{
		client:      client,
		name:        t.Name,
		description: t.Description,
		params:      inputSchemaToMap(t.InputSchema),
	}
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return t.name }

// Description implements tool.Tool.
func (t *Tool) Description() string { return t.description }

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any { return t.params }

// Call implements tool.Tool. Arguments are validated by the server. A result
// flagged isError becomes an EXECUTION_ERROR carrying the remote text.
func (t *Tool) Call(ctx context.Context, args map[string]any) (any, error) {
	res, err := t.client.CallTool(ctx, t.name, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("remote tool %q timed out: %w", t.name, err)
		}
		return nil, &tool.ToolError{Tool: t.name, Message: err.Error(), Code: tool.CodeExecution, Err: err}
	}

	text := textContent(res)

	if res.IsError {
		if text == "" {
			text = "remote tool reported an error"
		}
		return nil, tool.NewToolError(t.name, text, tool.CodeExecution)
	}

	return text, nil
}

// inputSchemaToMap converts the listed schema to a JSON Schema map.
func inputSchemaToMap(schema mcpgo.ToolInputSchema) map[string]any {
	m := map[string]any{"type": schema.Type}
	if schema.Type == "" {
		m["type"] = "object"
	}

	props := map[string]any{}
	for k, v := range schema.Properties {
		props[k] = v
	}
	m["properties"] = props

	if len(schema.Required) > 0 {
		m["required"] = schema.Required
	}

	return m
}

// textContent concatenates the text parts of a result; other parts are noted
// by type.
func textContent(res *mcpgo.CallToolResult) string {
	if res == nil {
		return ""
	}

	parts := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		switch v := c.(type) {
		case mcpgo.TextContent:
			parts = append(parts, v.Text)
		case *mcpgo.TextContent:
			parts = append(parts, v.Text)
		default:
			parts = append(parts, fmt.Sprintf("[non-text content: %T]", c))
		}
	}

	return strings.Join(parts, "\n")
}
