package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"reviewagent"
	"reviewagent/coordinator"
	"reviewagent/tools"
)

type Client struct {
	endpoint   string
	model      string
	httpClient reviewagent.HTTPClient
	options    options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   reviewagent.HTTPClient
	Temperature  float64
	MaxTokens    int
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.ModelID == "" {
		return nil, fmt.Errorf("model id is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.6
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   opts.Temperature,
			TopP:          0.9,
			RepeatPenalty: 1.05,
			NumCtx:        16384, // raise if the machine can handle it
			NumPredict:    opts.MaxTokens,
		},
	}, nil
}

// Invoke sends the conversation to /api/chat. Tool calls get synthesized ids since Ollama
// matches tool results by position and name only.
func (c *Client) Invoke(ctx context.Context, prompt coordinator.Prompt) (coordinator.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages), "tools_len", len(prompt.Tools))

	reqBody, err := c.buildRequest(prompt)
	if err != nil {
		return coordinator.Response{}, err
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return coordinator.Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return coordinator.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return coordinator.Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return coordinator.Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return coordinator.Response{}, fmt.Errorf("ollama: %s: %s", resp.Status, string(body))
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		slog.Warn("LLM_CLIENT: Decode failed", "err", err, "body_len", len(body))
		return coordinator.Response{}, fmt.Errorf("ollama: decode response: %w", err)
	}

	out := coordinator.Response{Content: cr.Message.Content, StopReason: cr.DoneReason}
	for i, call := range cr.Message.ToolCalls {
		args := call.Function.Arguments
		if args == nil {
			args = map[string]any{}
		}
		out.ToolCalls = append(out.ToolCalls, tools.Call{
			Name:      call.Function.Name,
			Input:     args,
			ToolUseID: fmt.Sprintf("call_%d_%d", len(prompt.Messages), i),
		})
	}

	slog.Info("LLM_CLIENT: Ollama invoke succeeded", "content_len", len(out.Content), "tool_calls", len(out.ToolCalls))
	return out, nil
}

// buildRequest converts the conversation into Ollama chat messages: the system prompt first,
// tool_use blocks as assistant tool_calls and each tool_result as its own role "tool" message.
func (c *Client) buildRequest(prompt coordinator.Prompt) (chatRequest, error) {
	messages := make([]Message, 0, len(prompt.Messages)+1)
	if sp := strings.TrimSpace(prompt.System); sp != "" {
		messages = append(messages, Message{Role: "system", Content: sp})
	}

	for _, m := range prompt.Messages {
		var texts coordinator.ContentBlocks
		var calls []ToolCall
		for _, part := range m.Content {
			switch part.Type {
			case coordinator.BlockText:
				texts = append(texts, part)
			case coordinator.BlockToolUse:
				var tc ToolCall
				tc.Function.Name = part.ToolName
				tc.Function.Arguments = part.Input
				calls = append(calls, tc)
			case coordinator.BlockToolResult:
				messages = append(messages, Message{Role: "tool", Name: part.ToolName, Content: part.Text})
			}
		}
		if len(texts) > 0 || len(calls) > 0 {
			messages = append(messages, Message{Role: string(m.Role), Content: texts.Join(), ToolCalls: calls})
		}
	}

	req := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  c.options,
	}
	if p := prompt.Inference; p != nil {
		if p.Temperature != 0 {
			req.Options.Temperature = float64(p.Temperature)
		}
		if p.TopP != 0 {
			req.Options.TopP = float64(p.TopP)
		}
		if p.MaxTokens != 0 {
			req.Options.NumPredict = int(p.MaxTokens)
		}
	}

	for _, def := range prompt.Tools {
		tool, err := toolFromDefinition(def)
		if err != nil {
			return chatRequest{}, err
		}
		req.Tools = append(req.Tools, tool)
	}
	return req, nil
}
