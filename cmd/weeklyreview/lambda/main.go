package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"reviewagent"
	"reviewagent/coordinator"
	"reviewagent/coordinator/bedrock"
	"reviewagent/storage"
	"reviewagent/tools"
)

// Params is the invocation payload. When Input is empty and InputS3Key is set, the input is
// read from the artifacts bucket.
type Params struct {
	UserKey    string                   `json:"userKey"`
	Input      *reviewagent.ReviewInput `json:"input,omitempty"`
	InputS3Key string                   `json:"inputS3Key,omitempty"`
}

type Results struct {
	Key    string             `json:"key,omitempty"`
	Review reviewagent.Review `json:"review"`
}

func main() {
	var modelConfig reviewagent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var agentConfig reviewagent.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var storeConfig reviewagent.StoreConfig
	if err := envdecode.Decode(&storeConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	// Shared across warm invocations.
	cache, err := tools.NewResearchCache(agentConfig.ResearchCacheSize)
	if err != nil {
		log.Fatalf("Failed to create research cache: %s", err)
	}

	fn := func(ctx context.Context, params Params) (Results, error) {
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return Results{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		s3Client := s3.NewFromConfig(awsCfg)
		brc := bedrockruntime.NewFromConfig(awsCfg)

		input, err := resolveInput(ctx, params, s3Client, storeConfig)
		if err != nil {
			slog.Error("SETUP: Failed to load review input", "error", err)
			return Results{}, err
		}
		slog.Info("SETUP: Review input loaded",
			"meals_count", len(input.Meals),
			"wearable_days", len(input.WearableData))

		store, closeStore, err := storage.OpenReviewStore(ctx, storeConfig, agentConfig.ArtifactsReviewsDir, s3Client)
		if err != nil {
			slog.Error("SETUP: Failed to open review store", "error", err)
			return Results{}, err
		}
		defer closeStore() // nolint: errcheck

		_, _, otelShutdown, err := reviewagent.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return Results{}, err
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()

		llm := bedrock.NewLLMClient(brc, bedrock.LLMOptions{
			ModelID:     modelConfig.ModelID,
			MaxTokens:   modelConfig.MaxTokens,
			Temperature: modelConfig.Temperature,
			TopP:        modelConfig.TopP,
		})
		research := tools.NewResearchNutrition(
			bedrock.NewResearcher(brc, modelConfig.ModelID),
			tools.ResearchOptions{Cache: cache, MaxChars: agentConfig.ResearchMaxChars},
		)

		review, err := coordinator.NewOrchestrator(llm, coordinator.Options{
			MaxRounds: agentConfig.MaxRounds,
			SynthesisInference: coordinator.Inference{
				MaxTokens:   modelConfig.CoordinatorMaxTokens,
				Temperature: modelConfig.CoordinatorTemperature,
				TopP:        modelConfig.TopP,
			},
			Logger:   reviewagent.NewStdoutCoordinationLogger(),
			Research: research,
		}).Run(ctx, input)
		if err != nil {
			slog.Error("RESULT: Error producing review", "error", err)
			return Results{}, err
		}

		key := storage.ReviewKey(params.UserKey, review)
		if err := store.Save(ctx, key, review); err != nil {
			// The review is still returned; persistence is best effort.
			slog.Error("RESULT: Failed to save review", "key", key, "error", err)
			key = ""
		}

		return Results{Key: key, Review: review}, nil
	}

	lambda.Start(fn)
}

func resolveInput(ctx context.Context, params Params, s3Client *s3.Client, cfg reviewagent.StoreConfig) (reviewagent.ReviewInput, error) {
	if params.Input != nil {
		return *params.Input, nil
	}

	key := params.InputS3Key
	if key == "" {
		key = cfg.InputS3Key
	}
	if cfg.S3Bucket == "" || key == "" {
		return reviewagent.ReviewInput{}, fmt.Errorf("no input in payload and no S3 input configured: ARTIFACTS_S3_BUCKET and inputS3Key or ARTIFACTS_INPUT_S3_KEY must be set")
	}
	return storage.LoadInput(ctx, storage.NewS3InputState(s3Client, cfg.S3Bucket, key))
}
