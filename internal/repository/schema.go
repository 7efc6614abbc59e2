package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/carbon-tracker/constants"
)

// recordSchema describes the persisted record layout.
func recordSchema() map[string]any {
	nullableNumber := map[string]any{"type": []string{"number", "null"}}
	return map[string]any{
		"type":     "object",
		"required": []string{"bill_type", "uploaded_at", "extracted_text", "analysis", "metadata"},
		"properties": map[string]any{
			"id":             map[string]any{"type": "string"},
			"bill_type":      map[string]any{"type": "string", "minLength": 1},
			"uploaded_at":    map[string]any{"type": "string", "pattern": `Z$`},
			"extracted_text": map[string]any{"type": "string"},
			"analysis": map[string]any{
				"type":     "object",
				"required": []string{"bill_summary", "environmental_impact", "narrative"},
				"properties": map[string]any{
					"bill_summary": map[string]any{
						"type":     "object",
						"required": []string{"utility_type", "consumption"},
						"properties": map[string]any{
							"utility_type": map[string]any{"type": "string", "enum": constants.AsStringSlice()},
							"consumption":  map[string]any{"type": "number", "minimum": 0},
							"amount":       nullableNumber,
							"date": map[string]any{
								"type":    []string{"string", "null"},
								"pattern": `^\d{4}-\d{2}-\d{2}$`,
							},
						},
					},
					"environmental_impact": map[string]any{
						"type":     "object",
						"required": []string{"carbon_emissions", "unit"},
						"properties": map[string]any{
							"carbon_emissions": map[string]any{"type": "number", "minimum": 0},
							"unit":             map[string]any{"const": constants.UnitKgCO2e},
						},
					},
					"narrative": map[string]any{"type": "string"},
				},
			},
			"metadata": map[string]any{
				"type":     "object",
				"required": []string{"file_name", "file_size", "content_type"},
				"properties": map[string]any{
					"file_name":    map[string]any{"type": "string", "minLength": 1},
					"file_size":    map[string]any{"type": "integer", "minimum": 0},
					"content_type": map[string]any{"type": "string"},
				},
			},
		},
	}
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compileRecordSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(recordSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("record.json")
	})
	return compiledSchema, schemaErr
}

// validateDocument checks an encoded record against the persisted layout.
func validateDocument(doc []byte) error {
	schema, err := compileRecordSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("record does not match layout: %w", err)
	}
	return nil
}
