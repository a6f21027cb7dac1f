package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"reviewagent/tools"
)

type handler func(p Prompt) (Response, error)

// fakeLLM records every prompt and answers through a handler. Handlers decide from the prompt
// alone so concurrent agents can share one fake.
type fakeLLM struct {
	mu      sync.Mutex
	prompts []Prompt
	handle  handler
}

func newFakeLLM(h handler) *fakeLLM { return &fakeLLM{handle: h} }

func (f *fakeLLM) Invoke(ctx context.Context, p Prompt) (Response, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	return f.handle(p)
}

func (f *fakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeLLM) PromptsFor(system string) []Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Prompt
	for _, p := range f.prompts {
		if p.System == system {
			out = append(out, p)
		}
	}
	return out
}

// byAgent routes each call to the handler registered for its system prompt.
func byAgent(handlers map[string]handler) handler {
	return func(p Prompt) (Response, error) {
		h, ok := handlers[p.System]
		if !ok {
			return Response{}, fmt.Errorf("no handler for system prompt %.30q", p.System)
		}
		return h(p)
	}
}

func text(s string) handler {
	return func(Prompt) (Response, error) { return Response{Content: s}, nil }
}

func failing(msg string) handler {
	return func(Prompt) (Response, error) { return Response{}, errors.New(msg) }
}

// toolRounds requests calls[i] on round i+1 and answers with final once all rounds are used.
func toolRounds(final string, calls ...[]tools.Call) handler {
	return func(p Prompt) (Response, error) {
		round := toolResultTurns(p)
		if round < len(calls) {
			return Response{ToolCalls: calls[round]}, nil
		}
		return Response{Content: final}, nil
	}
}

func toolResultTurns(p Prompt) int {
	n := 0
	for _, m := range p.Messages {
		if m.Role == RoleUser && len(m.Content) > 0 && m.Content[0].Type == BlockToolResult {
			n++
		}
	}
	return n
}

func call(id, name string, input map[string]any) tools.Call {
	return tools.Call{ToolUseID: id, Name: name, Input: input}
}

type staticResearcher struct{ answer string }

func (s staticResearcher) Research(ctx context.Context, query string) (string, error) {
	return s.answer, nil
}

type panickingResearcher struct{}

func (panickingResearcher) Research(ctx context.Context, query string) (string, error) {
	panic("research backend exploded")
}
