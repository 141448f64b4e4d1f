package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// ParseTemplate compiles a prompt template with the helper funcs available to
// all prompts. Unknown keys are an execution error instead of "<no value>".
// This lives in internal to avoid committing to public API stability prematurely.
func ParseTemplate(text string) (*template.Template, error) {
	return template.New("prompt").Option("missingkey=error").Funcs(template.FuncMap{
		"default": func(defaultVal any, val any) any {
			if val == nil || val == "" {
				return defaultVal
			}
			return val
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
	}).Parse(text)
}

// RenderTemplate executes text as a text/template against data.
func RenderTemplate(text string, data any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := ParseTemplate(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
