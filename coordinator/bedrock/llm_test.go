package bedrock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewagent/coordinator"
	"reviewagent/tools"
)

// mockBedrockClient implements bedrockRuntimeClient for testing
type mockBedrockClient struct {
	response *bedrockruntime.ConverseOutput
	err      error
	inputs   []*bedrockruntime.ConverseInput
}

func (m *mockBedrockClient) Converse(ctx context.Context, input *bedrockruntime.ConverseInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.inputs = append(m.inputs, input)
	return m.response, m.err
}

func message(blocks ...types.ContentBlock) *types.ConverseOutputMemberMessage {
	return &types.ConverseOutputMemberMessage{Value: types.Message{Role: types.ConversationRoleAssistant, Content: blocks}}
}

func userPrompt(text string) coordinator.Prompt {
	return coordinator.Prompt{
		System:   "system",
		Messages: []coordinator.Message{coordinator.NewUserMessage(text)},
	}
}

func TestNewLLMClient(t *testing.T) {
	tests := []struct {
		name     string
		input    LLMOptions
		expected LLMOptions
	}{
		{
			name:  "empty options uses defaults",
			input: LLMOptions{},
			expected: LLMOptions{
				ModelID:     defaultModelID,
				MaxTokens:   defaultMaxTokens,
				Temperature: defaultTemperature,
				TopP:        defaultTopP,
			},
		},
		{
			name: "custom options preserved",
			input: LLMOptions{
				ModelID:     "custom-model",
				MaxTokens:   2048,
				Temperature: 0.5,
				TopP:        0.8,
			},
			expected: LLMOptions{
				ModelID:     "custom-model",
				MaxTokens:   2048,
				Temperature: 0.5,
				TopP:        0.8,
			},
		},
		{
			name: "partial options with defaults",
			input: LLMOptions{
				ModelID:   "custom-model",
				MaxTokens: 2048,
			},
			expected: LLMOptions{
				ModelID:     "custom-model",
				MaxTokens:   2048,
				Temperature: defaultTemperature,
				TopP:        defaultTopP,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &mockBedrockClient{}
			client := NewLLMClient(mockClient, tt.input)

			assert.Equal(t, tt.expected, client.opts)
			assert.Equal(t, mockClient, client.brc)
		})
	}
}

func TestLLMClient_Invoke(t *testing.T) {
	tests := []struct {
		name          string
		mockResponse  *bedrockruntime.ConverseOutput
		mockError     error
		expectedResp  coordinator.Response
		expectedError string
	}{
		{
			name: "final text response",
			mockResponse: &bedrockruntime.ConverseOutput{
				StopReason: types.StopReasonEndTurn,
				Output:     message(&types.ContentBlockMemberText{Value: "Protein was low."}),
				Usage:      &types.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(20)},
				Metrics:    &types.ConverseMetrics{LatencyMs: aws.Int64(100)},
			},
			expectedResp: coordinator.Response{Content: "Protein was low.", StopReason: "end_turn"},
		},
		{
			name: "tool use response keeps text",
			mockResponse: &bedrockruntime.ConverseOutput{
				StopReason: types.StopReasonToolUse,
				Output: message(
					&types.ContentBlockMemberText{Value: "Let me check."},
					&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
						ToolUseId: aws.String("test-id"),
						Name:      aws.String("analyze_meals"),
						Input:     document.NewLazyDocument(map[string]any{"focus": "all"}),
					}},
				),
			},
			expectedResp: coordinator.Response{
				Content:    "Let me check.",
				StopReason: "tool_use",
				ToolCalls: []tools.Call{
					{Name: "analyze_meals", Input: map[string]any{"focus": "all"}, ToolUseID: "test-id"},
				},
			},
		},
		{
			name: "missing metrics and usage",
			mockResponse: &bedrockruntime.ConverseOutput{
				StopReason: types.StopReasonEndTurn,
				Output:     message(),
			},
			expectedResp: coordinator.Response{StopReason: "end_turn"},
		},
		{
			name: "max tokens error",
			mockResponse: &bedrockruntime.ConverseOutput{
				StopReason: types.StopReasonMaxTokens,
			},
			expectedError: "model hit MaxTokens limit",
		},
		{
			name: "safety filter error",
			mockResponse: &bedrockruntime.ConverseOutput{
				StopReason: types.StopReasonContentFiltered,
			},
			expectedError: "model response blocked by Bedrock safety filters",
		},
		{
			name: "guardrail error",
			mockResponse: &bedrockruntime.ConverseOutput{
				StopReason: types.StopReasonGuardrailIntervened,
			},
			expectedError: "model response blocked by Bedrock safety filters",
		},
		{
			name:          "bedrock API error",
			mockError:     assert.AnError,
			expectedError: "assert.AnError general error for testing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &mockBedrockClient{
				response: tt.mockResponse,
				err:      tt.mockError,
			}

			llmClient := NewLLMClient(mockClient, LLMOptions{})
			resp, err := llmClient.Invoke(context.Background(), userPrompt("Hello"))

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedResp, resp)
		})
	}
}

func TestLLMClient_ConverseInput(t *testing.T) {
	client := NewLLMClient(&mockBedrockClient{}, LLMOptions{ModelID: "m"})

	t.Run("conversation with tools", func(t *testing.T) {
		prompt := coordinator.Prompt{
			System: "You are the Meal Analyst.",
			Messages: []coordinator.Message{
				coordinator.NewUserMessage("Analyze."),
				coordinator.NewAssistantMessage(coordinator.Response{ToolCalls: []tools.Call{
					{Name: "analyze_meals", Input: map[string]any{"focus": "all"}, ToolUseID: "t1"},
				}}),
				coordinator.NewToolResultMessage([]coordinator.ToolResult{
					{ToolUseID: "t1", ToolName: "analyze_meals", Text: `{"daysLogged":3}`},
				}),
			},
			Tools: tools.NewRegistry(tools.NewNoWearables()).Definitions(),
		}

		in, err := client.converseInput(prompt)
		require.NoError(t, err)

		assert.Equal(t, "m", aws.ToString(in.ModelId))
		require.Len(t, in.System, 1)
		assert.Equal(t, "You are the Meal Analyst.", in.System[0].(*types.SystemContentBlockMemberText).Value)
		assert.Equal(t, int32(defaultMaxTokens), aws.ToInt32(in.InferenceConfig.MaxTokens))

		require.Len(t, in.Messages, 3)
		assert.Equal(t, types.ConversationRoleAssistant, in.Messages[1].Role)
		use, ok := in.Messages[1].Content[0].(*types.ContentBlockMemberToolUse)
		require.True(t, ok)
		assert.Equal(t, "t1", aws.ToString(use.Value.ToolUseId))

		result, ok := in.Messages[2].Content[0].(*types.ContentBlockMemberToolResult)
		require.True(t, ok)
		assert.Equal(t, "t1", aws.ToString(result.Value.ToolUseId))
		require.Len(t, result.Value.Content, 1)
		assert.Equal(t, `{"daysLogged":3}`, result.Value.Content[0].(*types.ToolResultContentBlockMemberText).Value)

		require.NotNil(t, in.ToolConfig)
		require.Len(t, in.ToolConfig.Tools, 1)
		spec := in.ToolConfig.Tools[0].(*types.ToolMemberToolSpec)
		assert.Equal(t, "check_wearables", aws.ToString(spec.Value.Name))
	})

	t.Run("coordinator call without tools", func(t *testing.T) {
		prompt := userPrompt("Synthesize.")
		prompt.Inference = &coordinator.Inference{MaxTokens: 2048, Temperature: 0.5}

		in, err := client.converseInput(prompt)
		require.NoError(t, err)

		assert.Nil(t, in.ToolConfig)
		assert.Equal(t, int32(2048), aws.ToInt32(in.InferenceConfig.MaxTokens))
		assert.Equal(t, float32(0.5), aws.ToFloat32(in.InferenceConfig.Temperature))
		assert.Equal(t, float32(defaultTopP), aws.ToFloat32(in.InferenceConfig.TopP))
	})
}

func TestTextFromOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   *bedrockruntime.ConverseOutput
		expected string
	}{
		{
			name:     "nil output",
			output:   nil,
			expected: "",
		},
		{
			name:     "single text block",
			output:   &bedrockruntime.ConverseOutput{Output: message(&types.ContentBlockMemberText{Value: "Hello world"})},
			expected: "Hello world",
		},
		{
			name: "multiple text blocks are newline joined",
			output: &bedrockruntime.ConverseOutput{Output: message(
				&types.ContentBlockMemberText{Value: "Some text"},
				&types.ContentBlockMemberText{Value: `{"key": "value"}`},
			)},
			expected: "Some text\n{\"key\": \"value\"}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, textFromOutput(tt.output))
		})
	}
}

func TestToolCallsFromOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   *bedrockruntime.ConverseOutput
		expected []tools.Call
	}{
		{
			name: "multiple tool calls",
			output: &bedrockruntime.ConverseOutput{Output: message(
				&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String("id1"),
					Name:      aws.String("check_wearables"),
					Input:     document.NewLazyDocument(map[string]any{"metric": "sleep"}),
				}},
				&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String("id2"),
					Name:      aws.String("research_nutrition"),
					Input:     document.NewLazyDocument(map[string]any{"query": `["not", "an", "array"]`}),
				}},
			)},
			expected: []tools.Call{
				{Name: "check_wearables", Input: map[string]any{"metric": "sleep"}, ToolUseID: "id1"},
				{Name: "research_nutrition", Input: map[string]any{"query": `["not", "an", "array"]`}, ToolUseID: "id2"},
			},
		},
		{
			name:     "no tool calls",
			output:   &bedrockruntime.ConverseOutput{Output: message(&types.ContentBlockMemberText{Value: "Just text"})},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := toolCallsFromOutput(tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestBuildToolSpec(t *testing.T) {
	def := tools.Definition{
		Name:        "research_nutrition",
		Description: "Research",
		InputSchema: &jsonschema.Schema{Type: "object", Required: []string{"query"}},
	}

	result, err := buildToolSpec(def)
	require.NoError(t, err)
	assert.Equal(t, def.Name, *result.Name)
	assert.Equal(t, def.Description, *result.Description)
	assert.NotNil(t, result.InputSchema)
}

func TestResearcher_Research(t *testing.T) {
	client := &mockBedrockClient{response: &bedrockruntime.ConverseOutput{
		StopReason: types.StopReasonEndTurn,
		Output:     message(&types.ContentBlockMemberText{Value: "Aim for 7-9 hours of sleep."}),
	}}

	answer, err := NewResearcher(client, "").Research(context.Background(), "sleep for recovery")
	require.NoError(t, err)
	assert.Equal(t, "Aim for 7-9 hours of sleep.", answer)

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, defaultModelID, aws.ToString(in.ModelId))
	assert.Nil(t, in.ToolConfig)
	assert.Equal(t, int32(512), aws.ToInt32(in.InferenceConfig.MaxTokens))

	empty := &mockBedrockClient{response: &bedrockruntime.ConverseOutput{Output: message()}}
	_, err = NewResearcher(empty, "m").Research(context.Background(), "q")
	assert.Error(t, err)
}
