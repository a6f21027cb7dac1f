package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"reviewagent/coordinator"
	"reviewagent/tools"
)

// defaultInputs are the arguments the mock passes to each known tool.
var defaultInputs = map[string]map[string]any{
	"analyze_meals":      {"focus": "all"},
	"check_wearables":    {"metric": "all"},
	"research_nutrition": {"query": "evidence-based weekly nutrition and recovery guidelines"},
}

type LLMClient struct{}

func NewLLMClient() *LLMClient {
	return &LLMClient{}
}

// Invoke simulates a model that calls every offered tool once, then reports on the results.
// A prompt without tools is treated as the coordinator call and answered with a JSON review.
// It is deterministic and only meant for local runs without a model backend.
func (m *LLMClient) Invoke(ctx context.Context, prompt coordinator.Prompt) (coordinator.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages), "tools_len", len(prompt.Tools))

	if len(prompt.Tools) == 0 {
		return m.review(prompt)
	}

	results := toolResults(prompt)
	if len(results) == 0 {
		return m.plan(prompt)
	}

	var b strings.Builder
	b.WriteString("Mock specialist report.")
	for _, r := range results {
		fmt.Fprintf(&b, "\n- %s: %s", r.ToolName, tools.Truncate(r.Text, 200))
	}
	slog.Info("LLM_CLIENT: Returning mock report", "tool_results", len(results))
	return coordinator.Response{Content: b.String()}, nil
}

// plan emits the tool requests as text, the way a model without native tool calling would.
func (m *LLMClient) plan(prompt coordinator.Prompt) (coordinator.Response, error) {
	calls := make([]map[string]any, 0, len(prompt.Tools))
	for _, t := range prompt.Tools {
		input, ok := defaultInputs[t.Name]
		if !ok {
			input = map[string]any{}
		}
		calls = append(calls, map[string]any{"name": t.Name, "input": input})
	}

	b, err := json.Marshal(map[string]any{"tool_calls": calls})
	if err != nil {
		return coordinator.Response{}, fmt.Errorf("failed to marshal plan: %w", err)
	}

	res := ParseModelOutput(string(b))
	for i := range res.ToolCalls {
		res.ToolCalls[i].ToolUseID = fmt.Sprintf("mock_%d_%d", len(prompt.Messages), i)
	}
	slog.Info("LLM_CLIENT: Returning plan", "tool_calls", len(res.ToolCalls))
	return res, nil
}

func (m *LLMClient) review(prompt coordinator.Prompt) (coordinator.Response, error) {
	final := map[string]any{
		"summary":          "Mock weekly review generated without a model backend.",
		"mealAnalysis":     "See the Meal Analyst report.",
		"wearableInsights": "See the Wellness agent report.",
		"recommendations":  []string{"Log meals every day", "Keep a consistent sleep schedule"},
		"weeklyScore":      6,
		"reasoning":        fmt.Sprintf("Deterministic mock output for a %d message conversation.", len(prompt.Messages)),
	}
	b, err := json.Marshal(final)
	if err != nil {
		return coordinator.Response{}, fmt.Errorf("failed to marshal final response: %w", err)
	}

	slog.Info("LLM_CLIENT: Returning final review")
	return coordinator.Response{Content: string(b)}, nil
}

func toolResults(prompt coordinator.Prompt) []coordinator.ContentBlock {
	var out []coordinator.ContentBlock
	for _, msg := range prompt.Messages {
		for _, part := range msg.Content {
			if part.Type == coordinator.BlockToolResult {
				out = append(out, part)
			}
		}
	}
	return out
}
