package tool

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var schemaCache sync.Map

func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}

	key := string(raw)
	if cached, ok := schemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString("tool.schema.json", key)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, compiled)

	return compiled, nil
}

// ValidateArguments checks args against a JSON schema. A nil schema accepts
// anything.
func ValidateArguments(schema map[string]any, args map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	compiled, err := compileSchema(schema)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	if args == nil {
		args = map[string]any{}
	}

	// normalize Go values (ints, structs) to their JSON decoded form
	payload, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}

	return compiled.Validate(decoded)
}

// CreateSchema derives an object schema from a struct using reflection.
// Field names follow json tags, descriptions come from the description tag,
// and fields that are neither pointers nor omitempty are required.
func CreateSchema(structType any) map[string]any {
	t := reflect.TypeOf(structType)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	properties := map[string]any{}
	schema := map[string]any{"type": "object", "properties": properties}

	if t == nil || t.Kind() != reflect.Struct {
		return schema
	}

	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}

		prop := map[string]any{"type": jsonType(field.Type)}
		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}
		properties[name] = prop

		if field.Type.Kind() != reflect.Ptr && !strings.Contains(opts, "omitempty") {
			required = append(required, name)
		}
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return jsonType(t.Elem())
	default:
		return "string"
	}
}
