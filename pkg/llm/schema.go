package llm

import (
	"encoding/json"

	"google.golang.org/genai"
)

// Schema is a minimal JSON schema covering the shapes the pipeline asks for:
// objects of strings and string arrays.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

func StringSchema(description string) *Schema {
	return &Schema{Type: "string", Description: description}
}

func StringArraySchema(description string) *Schema {
	return &Schema{Type: "array", Description: description, Items: &Schema{Type: "string"}}
}

// JSON renders the schema as a JSON document for prompt-embedded response formats.
func (s *Schema) JSON() string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// PromptInstruction mirrors the response-format block used for JSON-mode generation.
func (s *Schema) PromptInstruction() string {
	return "Return the JSON object directly without any formatting or additional text. " +
		"The JSON object should have the following structure as defined in the schema. " +
		"Make sure to answer in valid json and include all necessary properties:" + s.JSON()
}

func (s *Schema) genai() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
	}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = prop.genai()
		}
	}
	out.Items = s.Items.genai()
	return out
}
