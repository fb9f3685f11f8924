// Package llm - extractor.go describes structured payloads the model is asked to emit.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionSchema defines a JSON object the model embeds in its output.
// The same definition renders the prompt contract and the JSON Schema used
// to validate what comes back.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "OrderConfirmation")
	Description string        // What the object captures
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // JSON type: "string", "number", "boolean"
	Description string // Description for the LLM
	Required    bool   // Whether the field must be present
	Nullable    bool   // Whether null is an accepted value
}

// PromptContract renders the object shape as a compact example for a prompt,
// e.g. {"confirmationId": "<string or null: ...>"}.
func (s ExtractionSchema) PromptContract() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, field := range s.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		if field.Nullable {
			typeHint += " or null"
		}
		if field.Description != "" {
			typeHint += ": " + field.Description
		}
		sb.WriteString(fmt.Sprintf("%q: \"<%s>\"", field.Name, typeHint))
	}
	sb.WriteString("}")
	return sb.String()
}

// JSONSchema renders the schema as a JSON Schema (draft-07) document.
func (s ExtractionSchema) JSONSchema() string {
	properties := make(map[string]any, len(s.Fields))
	required := []string{}
	for _, field := range s.Fields {
		typ := field.Type
		if typ == "" {
			typ = "string"
		}
		var typeValue any = typ
		if field.Nullable {
			typeValue = []string{typ, "null"}
		}
		properties[field.Name] = map[string]any{
			"type":        typeValue,
			"description": field.Description,
		}
		if field.Required {
			required = append(required, field.Name)
		}
	}

	doc := map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"title":      s.Name,
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
	// Marshalling maps of strings and slices cannot fail.
	out, _ := json.Marshal(doc)
	return string(out)
}

// --- Predefined Schemas ---

// OrderConfirmationSchema is the payload the purchasing agent emits when it
// ends a call.
func OrderConfirmationSchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "OrderConfirmation",
		Description: "Order confirmation details obtained from the supplier",
		Fields: []SchemaField{
			{
				Name:        "confirmationId",
				Type:        "string",
				Description: "order or confirmation number given by the supplier",
				Required:    true,
				Nullable:    true,
			},
			{
				Name:        "deliveryEstimate",
				Type:        "string",
				Description: "estimated delivery time as stated by the supplier",
				Required:    true,
				Nullable:    true,
			},
		},
	}
}
