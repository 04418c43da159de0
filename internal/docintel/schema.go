package docintel

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// envelopeSchema is deliberately permissive: it pins down only the parts
// extraction depends on (cell indexes, content strings), leaving the rest of
// the envelope open so service-side additions don't break runs.
const envelopeSchema = `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"status": {"type": "string"},
		"analyzeResult": {
			"type": "object",
			"properties": {
				"documents": {
					"type": "array",
					"items": {"type": "object"}
				},
				"tables": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"cells": {
								"type": "array",
								"items": {
									"type": "object",
									"properties": {
										"rowIndex": {"type": "integer", "minimum": 0},
										"columnIndex": {"type": "integer", "minimum": 0},
										"content": {"type": "string"}
									}
								}
							}
						}
					}
				}
			}
		}
	}
}`

var compiledEnvelope = jsonschema.MustCompileString("analyze-envelope.json", envelopeSchema)

// ValidateEnvelope checks a completed operation envelope against the schema.
// An invalid envelope is treated as a transient service fault by callers.
func ValidateEnvelope(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("envelope is not valid JSON: %w", err)
	}
	if err := compiledEnvelope.Validate(doc); err != nil {
		return fmt.Errorf("envelope schema: %w", err)
	}
	return nil
}
