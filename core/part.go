package core

import (
	"encoding/json"
	"fmt"
)

// Part represents a polymorphic segment of message content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text     string         // Plain UTF-8 text
	Metadata map[string]any // Optional producer-provided metadata
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// DataPart is a structured data segment (any JSON-serializable value).
type DataPart struct {
	Data     any // Structured payload (map, slice, number, ...)
	Metadata map[string]any
}

// isPart implements the Part interface for DataPart.
func (DataPart) isPart() {}

// Text renders the part as text: data parts are JSON encoded.
func (p DataPart) Text() string {
	b, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Sprintf("%v", p.Data)
	}
	return string(b)
}

// PartsFromValue converts an arbitrary result into content parts. Strings
// become a TextPart, nil yields no parts, everything else a DataPart.
func PartsFromValue(v any) []Part {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []Part{TextPart{Text: val}}
	case []Part:
		return val
	case Part:
		return []Part{val}
	default:
		return []Part{DataPart{Data: val}}
	}
}
