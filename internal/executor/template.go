package executor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RenderTemplate substitutes {{key}} placeholders in a prompt template with
// payload values. Escaping policy: string values are inserted as text but any
// brace runs inside them are broken up so a value can never smuggle a new
// placeholder into the rendered prompt; non-string values are JSON-encoded.
// A placeholder with no matching key is an error rather than a silent no-op.
func RenderTemplate(template string, vars map[string]interface{}) (string, error) {
	var out strings.Builder
	rest := template

	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}

		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		end += start

		out.WriteString(rest[:start])

		key := strings.TrimSpace(rest[start+2 : end])
		value, ok := vars[key]
		if !ok {
			return "", fmt.Errorf("template references unknown key %q", key)
		}

		rendered, err := renderValue(value)
		if err != nil {
			return "", fmt.Errorf("cannot render value for key %q: %w", key, err)
		}
		out.WriteString(rendered)

		rest = rest[end+2:]
	}
}

func renderValue(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return neutralizeBraces(v), nil
	case nil:
		return "", nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return neutralizeBraces(string(encoded)), nil
	}
}

// neutralizeBraces splits consecutive braces with a space so substituted
// values cannot form {{...}} sequences themselves.
func neutralizeBraces(s string) string {
	s = strings.ReplaceAll(s, "{{", "{ {")
	s = strings.ReplaceAll(s, "}}", "} }")
	return s
}
