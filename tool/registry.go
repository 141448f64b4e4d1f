package tool

import (
	"strings"

	"github.com/hupe1980/reactmesh/config"
	"github.com/hupe1980/reactmesh/model"
)

// Registry is an ordered, read-only set of tools with unique names. It is
// assembled once per loop invocation and shared by both stages.
type Registry struct {
	tools []Tool
	index map[string]int
}

// NewRegistry builds a registry preserving the given order. A duplicate name
// is a configuration error.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make([]Tool, 0, len(tools)), index: make(map[string]int, len(tools))}

	for _, t := range tools {
		if t == nil {
			continue
		}
		name := t.Name()
		if _, exists := r.index[name]; exists {
			return nil, config.NewConfigError("tools", name, "duplicate tool name")
		}
		r.index[name] = len(r.tools)
		r.tools = append(r.tools, t)
	}

	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. Intended for tests and examples.
func MustRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of tools.
func (r *Registry) Len() int { return len(r.tools) }

// Tools returns the tools in registry order.
func (r *Registry) Tools() []Tool {
	return append([]Tool(nil), r.tools...)
}

// Names returns tool names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name()
	}
	return names
}

// Lookup resolves a tool by name. Unknown names yield a *NotFoundError.
func (r *Registry) Lookup(name string) (Tool, error) {
	if i, ok := r.index[name]; ok {
		return r.tools[i], nil
	}
	return nil, &NotFoundError{Name: name, Available: r.Names()}
}

// Describe renders one "name - description" line per tool for the system prompt.
func (r *Registry) Describe() string {
	lines := make([]string, len(r.tools))
	for i, t := range r.tools {
		lines[i] = t.Name() + " - " + t.Description()
	}
	return strings.Join(lines, "\n")
}

// Definitions converts the tools into model tool definitions.
func (r *Registry) Definitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, len(r.tools))
	for i, t := range r.tools {
		params := t.Parameters()
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		defs[i] = model.NewToolDefinition(t.Name(), t.Description(), params)
	}
	return defs
}
