package bedrock

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const researchSystemPrompt = "You are a nutrition research assistant. Provide concise, evidence-based information."

// Researcher answers research_nutrition queries with a single tool-less Converse call.
type Researcher struct {
	brc     bedrockRuntimeClient
	modelID string
}

func NewResearcher(brc bedrockRuntimeClient, modelID string) *Researcher {
	if modelID == "" {
		modelID = defaultModelID
	}
	return &Researcher{brc: brc, modelID: modelID}
}

func (r *Researcher) Research(ctx context.Context, query string) (string, error) {
	out, err := r.brc.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(r.modelID),
		System:  []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: researchSystemPrompt}},
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: query}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(512),
			Temperature: aws.Float32(0.4),
		},
	})
	if err != nil {
		slog.Warn("LLM_CLIENT: Research call failed", "error", err)
		return "", err
	}

	text := textFromOutput(out)
	if text == "" {
		return "", errors.New("research returned no text")
	}
	return text, nil
}
