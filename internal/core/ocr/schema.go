package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ocrSpaceResponseSchema describes the parts of the OCR.space reply we read.
// ErrorMessage comes back as a string, a list of strings or null depending
// on the failure.
func ocrSpaceResponseSchema() map[string]any {
	errorMessage := map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			map[string]any{"type": "null"},
		},
	}
	exitCode := map[string]any{"type": []any{"integer", "string"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ParsedResults": map[string]any{
				"type": []any{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"ParsedText":        map[string]any{"type": []any{"string", "null"}},
						"FileParseExitCode": exitCode,
						"ErrorMessage":      errorMessage,
						"ErrorDetails":      errorMessage,
					},
				},
			},
			"OCRExitCode":           exitCode,
			"IsErroredOnProcessing": map[string]any{"type": "boolean"},
			"ErrorMessage":          errorMessage,
			"ErrorDetails":          errorMessage,
		},
		"required": []any{"IsErroredOnProcessing"},
	}
}

var (
	responseSchemaOnce sync.Once
	responseSchema     *jsonschema.Schema
	responseSchemaErr  error
)

func compiledResponseSchema() (*jsonschema.Schema, error) {
	responseSchemaOnce.Do(func() {
		responseSchema, responseSchemaErr = compileSchema(ocrSpaceResponseSchema())
	})
	return responseSchema, responseSchemaErr
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("ocrspace.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("ocrspace.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validateResponse checks a raw OCR.space body against the response schema.
func validateResponse(data []byte) error {
	schema, err := compiledResponseSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
