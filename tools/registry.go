package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
)

// Registry maps tool names to implementations. Each agent task binds its own registry.
type Registry map[string]Tool

// NewRegistry creates a registry from the given tools, keyed by Name().
func NewRegistry(tools ...Tool) Registry {
	r := make(Registry, len(tools))
	for _, t := range tools {
		r[t.Name()] = t
	}
	return r
}

// Definitions returns the tool catalog sorted by name so prompts are stable across runs.
func (r Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r))
	for _, t := range r {
		defs = append(defs, Definition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// GetTool retrieves a tool by name from the registry
func (r Registry) GetTool(name string) (Tool, error) {
	tool, exists := r[name]
	if !exists {
		return nil, fmt.Errorf("tool %q not found in registry", name)
	}
	return tool, nil
}

// Execute runs the named tool and always returns text: unknown tools and tool failures become
// an {"error": ...} payload the model can react to.
func (r Registry) Execute(ctx context.Context, name string, input map[string]any) string {
	tool, err := r.GetTool(name)
	if err != nil {
		slog.Warn("TOOLS: Unknown tool requested", "tool", name, "error", err)
		return errorPayload(fmt.Sprintf("Unknown tool: %s", name))
	}

	out, err := tool.Run(ctx, input)
	if err != nil {
		slog.Warn("TOOLS: Tool failed", "tool", name, "error", err)
		return errorPayload(fmt.Sprintf("%s failed: %v", name, err))
	}
	return out
}

func errorPayload(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}
