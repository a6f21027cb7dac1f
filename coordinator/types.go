package coordinator

import (
	"context"
	"strings"

	"reviewagent/tools"
)

// LLM is the hosted model capability: given a prompt it returns final text, tool calls, or both.
type LLM interface {
	Invoke(ctx context.Context, prompt Prompt) (Response, error)
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is a tagged variant: text uses Text; tool_use uses ToolUseID, ToolName and Input;
// tool_result uses ToolUseID, ToolName and Text.
type ContentBlock struct {
	Type      BlockType      `json:"type"`
	Text      string         `json:"text,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
}

type ContentBlocks []ContentBlock

// Join concatenates the text blocks, newline separated.
func (cb ContentBlocks) Join() string {
	var texts []string
	for _, b := range cb {
		if b.Type == BlockText && b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	return strings.Join(texts, "\n")
}

type Message struct {
	Role    Role          `json:"role"`
	Content ContentBlocks `json:"content"`
}

func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: ContentBlocks{{Type: BlockText, Text: text}}}
}

// NewAssistantMessage records a model turn that requested tools.
func NewAssistantMessage(res Response) Message {
	msg := Message{Role: RoleAssistant, Content: ContentBlocks{}}
	if res.Content != "" {
		msg.Content = append(msg.Content, ContentBlock{Type: BlockText, Text: res.Content})
	}
	for _, call := range res.ToolCalls {
		msg.Content = append(msg.Content, ContentBlock{
			Type:      BlockToolUse,
			ToolUseID: call.ToolUseID,
			ToolName:  call.Name,
			Input:     call.Input,
		})
	}
	return msg
}

type ToolResult struct {
	ToolUseID string
	ToolName  string
	Text      string
}

// NewToolResultMessage answers every tool call of the previous assistant turn in one user turn.
func NewToolResultMessage(results []ToolResult) Message {
	parts := make(ContentBlocks, 0, len(results))
	for _, result := range results {
		parts = append(parts, ContentBlock{
			Type:      BlockToolResult,
			ToolUseID: result.ToolUseID,
			ToolName:  result.ToolName,
			Text:      result.Text,
		})
	}
	return Message{Role: RoleUser, Content: parts}
}

// Inference overrides a backend's default sampling settings for one prompt.
type Inference struct {
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// Prompt is the conversation state of one model call sequence.
type Prompt struct {
	System    string             `json:"system"`
	Messages  []Message          `json:"messages"`
	Tools     []tools.Definition `json:"tools,omitempty"`
	Inference *Inference         `json:"-"`
}

// Response is the model's reply. Content holds the text blocks newline-joined.
type Response struct {
	Content    string       `json:"content,omitempty"`
	ToolCalls  []tools.Call `json:"tool_calls,omitempty"`
	StopReason string       `json:"stop_reason,omitempty"`
}
