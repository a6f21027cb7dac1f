package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"reviewagent"
	"reviewagent/coordinator"
	"reviewagent/coordinator/bedrock"
	"reviewagent/coordinator/mock"
	"reviewagent/coordinator/ollama"
	"reviewagent/slack"
	"reviewagent/storage"
	"reviewagent/tools"
)

// Runs one weekly review from a local input file. Usage: local [input.json]
func main() {
	ctx := context.Background()

	var modelConfig reviewagent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var agentConfig reviewagent.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var storeConfig reviewagent.StoreConfig
	if err := envdecode.Decode(&storeConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var s3Client storage.S3API
	if storeConfig.Kind == "s3" || (len(os.Args) < 2 && storeConfig.InputS3Key != "") {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to load AWS config", "error", err)
			return
		}
		s3Client = s3.NewFromConfig(awsCfg)
	}

	var inputState storage.InputState = storage.NewFileInputState(argOr(1, agentConfig.ArtifactsInputPath))
	if len(os.Args) < 2 && storeConfig.InputS3Key != "" {
		inputState = storage.NewS3InputState(s3Client, storeConfig.S3Bucket, storeConfig.InputS3Key)
	}

	input, err := storage.LoadInput(ctx, inputState)
	if err != nil {
		slog.Error("SETUP: Failed to load review input", "error", err)
		return
	}
	slog.Info("SETUP: Review input loaded", "meals_count", len(input.Meals), "wearable_days", len(input.WearableData))

	logger, cleanup, err := newCoordinationLogger(agentConfig.Backend + "." + modelConfig.ModelID)
	if err != nil {
		slog.Error("SETUP: Failed to create coordination logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush coordination log", "error", err)
		}
	}()

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		_, _, otelShutdown, err := reviewagent.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()
	}

	llm, researcher, err := newBackend(ctx, agentConfig, modelConfig)
	if err != nil {
		slog.Error("SETUP: Failed to create LLM client", "backend", agentConfig.Backend, "error", err)
		return
	}

	cache, err := tools.NewResearchCache(agentConfig.ResearchCacheSize)
	if err != nil {
		slog.Error("SETUP: Failed to create research cache", "error", err)
		return
	}
	research := tools.NewResearchNutrition(researcher, tools.ResearchOptions{Cache: cache, MaxChars: agentConfig.ResearchMaxChars})

	store, closeStore, err := storage.OpenReviewStore(ctx, storeConfig, agentConfig.ArtifactsReviewsDir, s3Client)
	if err != nil {
		slog.Error("SETUP: Failed to open review store", "error", err)
		return
	}
	defer closeStore() // nolint: errcheck

	ctx, span := otel.Tracer(reviewagent.TracerNameOrchestrator).Start(ctx, "weeklyreview.local", trace.WithAttributes(
		attribute.String("llm.backend", agentConfig.Backend),
		attribute.String("model.id", modelConfig.ModelID),
		attribute.Int("agent.max_rounds", agentConfig.MaxRounds),
	))
	defer span.End()

	review, err := coordinator.NewOrchestrator(llm, coordinator.Options{
		MaxRounds: agentConfig.MaxRounds,
		SynthesisInference: coordinator.Inference{
			MaxTokens:   modelConfig.CoordinatorMaxTokens,
			Temperature: modelConfig.CoordinatorTemperature,
			TopP:        modelConfig.TopP,
		},
		Logger:   logger,
		Research: research,
	}).Run(ctx, input)
	if err != nil {
		slog.Error("FAILURE: Error producing review", "error", err)
		return
	}

	if agentConfig.DebugDump {
		reviewagent.DumpReview(os.Stderr, review)
	}

	key := storage.ReviewKey(os.Getenv("USER"), review)
	if err := store.Save(ctx, key, review); err != nil {
		slog.Error("RESULT: Failed to save review", "key", key, "error", err)
	} else {
		slog.Info("RESULT: Review saved", "key", key, "store", storeConfig.Kind)
	}

	fmt.Println(slack.FormatReview(review))

	if webhook := os.Getenv("SLACK_WEBHOOK_URL"); webhook != "" {
		channel := os.Getenv("SLACK_CHANNEL")
		if channel == "" {
			channel = "#general"
		}
		if err := slack.NewClient(webhook, http.DefaultClient).PostReview(ctx, channel, review); err != nil {
			slog.Error("Failed to post review to Slack", "error", err)
		}
	}
}

// newBackend builds the model client named by LLM_BACKEND. Research is only backed on bedrock;
// elsewhere the research tool answers with the unavailable message.
func newBackend(ctx context.Context, agentConfig reviewagent.AgentConfig, modelConfig reviewagent.ModelConfig) (coordinator.LLM, tools.Researcher, error) {
	switch agentConfig.Backend {
	case "bedrock":
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		brc := bedrockruntime.NewFromConfig(awsCfg)
		llm := bedrock.NewLLMClient(brc, bedrock.LLMOptions{
			ModelID:     modelConfig.ModelID,
			MaxTokens:   modelConfig.MaxTokens,
			Temperature: modelConfig.Temperature,
			TopP:        modelConfig.TopP,
		})
		return llm, bedrock.NewResearcher(brc, modelConfig.ModelID), nil
	case "ollama":
		llm, err := ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: agentConfig.BaseOllamaEndpoint,
			ModelID:      modelConfig.ModelID,
			HTTPClient:   http.DefaultClient,
			Temperature:  float64(modelConfig.Temperature),
			MaxTokens:    int(modelConfig.MaxTokens),
		})
		if err != nil {
			return nil, nil, err
		}
		return llm, nil, nil
	case "mock":
		return mock.NewLLMClient(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM_BACKEND %q", agentConfig.Backend)
	}
}

func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func newCoordinationLogger(modelID string) (reviewagent.CoordinationLogger, func() error, error) {
	if err := os.MkdirAll("./logs", 0755); err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to create log dir: %w", err)
	}
	logFilePath := reviewagent.NewCoordinationLogFilePath(modelID)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := reviewagent.NewFileCoordinationLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
