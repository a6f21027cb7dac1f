package ollama

import (
	"encoding/json"
	"fmt"

	"reviewagent/tools"
)

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
	NumPredict    int     `json:"num_predict,omitempty"`
}

// Message is an Ollama chat message. Tool results use role "tool" with the function name.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Name      string     `json:"name,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a native Ollama function call. Ollama does not assign call ids.
type ToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

// Tool represents a tool in Ollama's native format
type Tool struct {
	Type     string     `json:"type"`
	Function ToolSchema `json:"function"`
}

// ToolSchema represents the function schema for Ollama tools
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
	Stream   bool      `json:"stream"`
	Options  options   `json:"options,omitempty"`
}

type chatResponse struct {
	Message    Message `json:"message"`
	DoneReason string  `json:"done_reason,omitempty"`
}

// toolFromDefinition converts a tool definition, passing the JSON schema through as parameters.
func toolFromDefinition(def tools.Definition) (Tool, error) {
	params := map[string]any{"type": "object"}
	if def.InputSchema != nil {
		b, err := json.Marshal(def.InputSchema)
		if err != nil {
			return Tool{}, fmt.Errorf("failed to marshal tool schema for %s: %w", def.Name, err)
		}
		if err := json.Unmarshal(b, &params); err != nil {
			return Tool{}, fmt.Errorf("failed to unmarshal tool schema for %s: %w", def.Name, err)
		}
	}

	return Tool{
		Type: "function",
		Function: ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  params,
		},
	}, nil
}
