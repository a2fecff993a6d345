package clients

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// The catalog endpoints are owned by another team and have drifted before.
// Payloads are validated against a minimal schema before decoding so a
// malformed deploy fails loudly at the boundary instead of as zero-valued
// structs deep in the gate engine.

var phaseListSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []any{"id", "nombre"},
		"properties": map[string]any{
			"id":     map[string]any{"type": "integer"},
			"codigo": map[string]any{"type": "string"},
			"nombre": map[string]any{"type": "string"},
		},
	},
}

var statusListSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []any{"id", "nombre"},
		"properties": map[string]any{
			"id":     map[string]any{"type": "integer"},
			"codigo": map[string]any{"type": "string"},
			"nombre": map[string]any{"type": "string"},
		},
	},
}

func validatePayload(schema map[string]any, payload []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewBytesLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return errors.New(strings.Join(details, "; "))
	}

	return nil
}
