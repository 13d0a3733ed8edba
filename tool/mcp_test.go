package tool

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestConvertSchemaPreservesPropertiesAndRequired(t *testing.T) {
	input := mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"city": map[string]any{"type": "string"},
		},
		Required: []string{"city"},
	}

	schema := convertSchema(input)
	if schema.Type != "object" {
		t.Fatalf("Type = %q, want %q", schema.Type, "object")
	}
	if _, ok := schema.Properties.Get("city"); !ok {
		t.Fatalf("Properties missing %q", "city")
	}
	if len(schema.Required) != 1 || schema.Required[0] != "city" {
		t.Fatalf("Required = %v, want [city]", schema.Required)
	}
}
