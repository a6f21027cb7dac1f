package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// Tool is a single callable the model may request. Run returns the text handed back to the
// model; an error is folded into an error payload by the Registry, never propagated to the loop.
type Tool interface {
	Name() string
	Description() string
	InputSchema() *jsonschema.Schema
	Run(ctx context.Context, input map[string]any) (string, error)
}

// Definition is the catalog entry a model backend receives for a tool.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

// Call is a tool invocation requested by the model.
type Call struct {
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}

func stringInput(input map[string]any, key string) (string, bool) {
	s, ok := input[key].(string)
	return s, ok && s != ""
}
