package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"reviewagent/coordinator"
	"reviewagent/tools"
)

const (
	// defaultModelID is an inference profile ID, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.amazon.nova-lite-v1:0"

	// Specialist reports run long; the coordinator call overrides this per prompt.
	defaultMaxTokens = 4096

	defaultTemperature = 0.6

	defaultTopP = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type LLMOptions struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

func (o LLMOptions) withDefaults() LLMOptions {
	if o.ModelID == "" {
		o.ModelID = defaultModelID
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.Temperature == 0 {
		o.Temperature = defaultTemperature
	}
	if o.TopP == 0 {
		o.TopP = defaultTopP
	}
	return o
}

// LLMClient implements coordinator.LLM on the Bedrock Converse API.
type LLMClient struct {
	brc  bedrockRuntimeClient
	opts LLMOptions
}

func NewLLMClient(brc bedrockRuntimeClient, opts LLMOptions) *LLMClient {
	return &LLMClient{
		brc:  brc,
		opts: opts.withDefaults(),
	}
}

func (c *LLMClient) Invoke(ctx context.Context, prompt coordinator.Prompt) (coordinator.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages), "tools_len", len(prompt.Tools))

	in, err := c.converseInput(prompt)
	if err != nil {
		return coordinator.Response{}, err
	}

	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("LLM_CLIENT: Bedrock invoke failed", "error", err, "model", c.opts.ModelID)
		return coordinator.Response{}, err
	}

	attrs := []any{"stop_reason", out.StopReason}
	if out.Metrics != nil {
		attrs = append(attrs, "latency_ms", aws.ToInt64(out.Metrics.LatencyMs))
	}
	if out.Usage != nil {
		attrs = append(attrs,
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens),
		)
	}
	slog.Info("LLM_CLIENT: Bedrock invoke succeeded", attrs...)

	switch out.StopReason {
	case types.StopReasonToolUse:
		calls, err := toolCallsFromOutput(out)
		if err != nil {
			return coordinator.Response{}, fmt.Errorf("failed to parse tool calls: %w", err)
		}
		slog.Info("LLM_CLIENT: Extracted tool calls", "calls_len", len(calls))
		return coordinator.Response{Content: textFromOutput(out), ToolCalls: calls, StopReason: string(out.StopReason)}, nil

	case types.StopReasonEndTurn, types.StopReasonStopSequence:
		text := textFromOutput(out)
		slog.Info("LLM_CLIENT: Extracted final text", "text_len", len(text))
		return coordinator.Response{Content: text, StopReason: string(out.StopReason)}, nil

	case types.StopReasonMaxTokens:
		slog.Warn("LLM_CLIENT: Model hit MaxTokens limit; consider increasing MaxTokens or chunking")
		return coordinator.Response{}, fmt.Errorf("model hit MaxTokens limit; consider increasing MaxTokens or chunking")

	case types.StopReasonGuardrailIntervened, types.StopReasonContentFiltered:
		slog.Warn("LLM_CLIENT: Model response blocked by Bedrock safety filters", "stop_reason", out.StopReason)
		return coordinator.Response{}, fmt.Errorf("model response blocked by Bedrock safety filters")

	default:
		calls, err := toolCallsFromOutput(out)
		if err != nil {
			return coordinator.Response{}, fmt.Errorf("failed to parse tool calls: %w", err)
		}
		return coordinator.Response{Content: textFromOutput(out), ToolCalls: calls, StopReason: string(out.StopReason)}, nil
	}
}

func (c *LLMClient) converseInput(prompt coordinator.Prompt) (*bedrockruntime.ConverseInput, error) {
	inference := types.InferenceConfiguration{
		MaxTokens:   aws.Int32(c.opts.MaxTokens),
		Temperature: aws.Float32(c.opts.Temperature),
		TopP:        aws.Float32(c.opts.TopP),
	}
	if p := prompt.Inference; p != nil {
		if p.MaxTokens != 0 {
			inference.MaxTokens = aws.Int32(p.MaxTokens)
		}
		if p.Temperature != 0 {
			inference.Temperature = aws.Float32(p.Temperature)
		}
		if p.TopP != 0 {
			inference.TopP = aws.Float32(p.TopP)
		}
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:         aws.String(c.opts.ModelID),
		Messages:        buildMessages(prompt.Messages),
		InferenceConfig: &inference,
	}
	if prompt.System != "" {
		in.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: prompt.System}}
	}

	// Bedrock rejects an empty tool list, so the coordinator call sends no ToolConfig at all.
	if len(prompt.Tools) > 0 {
		specs := make([]types.Tool, 0, len(prompt.Tools))
		for _, t := range prompt.Tools {
			spec, err := buildToolSpec(t)
			if err != nil {
				return nil, err
			}
			specs = append(specs, &types.ToolMemberToolSpec{Value: spec})
		}
		in.ToolConfig = &types.ToolConfiguration{Tools: specs, ToolChoice: &types.ToolChoiceMemberAuto{}}
	}
	return in, nil
}

func buildMessages(messages []coordinator.Message) []types.Message {
	msgs := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		msg := types.Message{Role: types.ConversationRole(m.Role)}

		for _, part := range m.Content {
			switch part.Type {
			case coordinator.BlockText:
				msg.Content = append(msg.Content, &types.ContentBlockMemberText{Value: part.Text})

			case coordinator.BlockToolUse:
				input := part.Input
				if input == nil {
					input = map[string]any{}
				}
				msg.Content = append(msg.Content, &types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String(part.ToolUseID),
					Name:      aws.String(part.ToolName),
					Input:     document.NewLazyDocument(input),
				}})

			case coordinator.BlockToolResult:
				msg.Content = append(msg.Content, &types.ContentBlockMemberToolResult{Value: types.ToolResultBlock{
					ToolUseId: aws.String(part.ToolUseID),
					Status:    types.ToolResultStatusSuccess,
					Content: []types.ToolResultContentBlock{
						&types.ToolResultContentBlockMemberText{Value: part.Text},
					},
				}})
			}
		}

		msgs = append(msgs, msg)
	}
	return msgs
}

// buildToolSpec constructs a ToolSpecification for a tool.
func buildToolSpec(t tools.Definition) (types.ToolSpecification, error) {
	// The schema is round-tripped through JSON so its custom MarshalJSON is honored by the document encoder.
	schemaJSON, err := json.Marshal(t.InputSchema)
	if err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to marshal tool schema for %s: %w", t.Name, err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to unmarshal tool schema for %s: %w", t.Name, err)
	}

	return types.ToolSpecification{
		Name:        aws.String(t.Name),
		Description: aws.String(t.Description),
		InputSchema: &types.ToolInputSchemaMemberJson{
			Value: document.NewLazyDocument(schemaMap),
		},
	}, nil
}

// textFromOutput joins the assistant's text blocks with newlines.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return ""
	}

	blocks := make(coordinator.ContentBlocks, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil {
			blocks = append(blocks, coordinator.ContentBlock{Type: coordinator.BlockText, Text: t.Value})
		}
	}
	return blocks.Join()
}

// toolCallsFromOutput extracts tool uses emitted by the assistant.
func toolCallsFromOutput(out *bedrockruntime.ConverseOutput) ([]tools.Call, error) {
	var calls []tools.Call

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return calls, nil
	}

	for _, cb := range msg.Value.Content {
		tu, ok := cb.(*types.ContentBlockMemberToolUse)
		if !ok || tu == nil {
			continue
		}

		input := map[string]any{}
		if tu.Value.Input != nil {
			if err := tu.Value.Input.UnmarshalSmithyDocument(&input); err != nil {
				return nil, fmt.Errorf("tool %s input: %w", aws.ToString(tu.Value.Name), err)
			}
		}

		calls = append(calls, tools.Call{
			Name:      aws.ToString(tu.Value.Name),
			Input:     input,
			ToolUseID: aws.ToString(tu.Value.ToolUseId),
		})
	}

	return calls, nil
}
