package coordinator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"reviewagent"
)

// instruments are the review metrics. The meter comes from the global provider, which is a no-op
// until reviewagent.InitOtel registers a real one.
type instruments struct {
	reviewRuns        metric.Int64Counter
	reviewRunsFailed  metric.Int64Counter
	agentRuns         metric.Int64Counter
	agentRounds       metric.Int64Counter
	toolCalls         metric.Int64Counter
	fallbacks         metric.Int64Counter
	llmResponseTime   metric.Float64Histogram
	reviewDuration    metric.Float64Histogram
	toolExecutionTime metric.Float64Histogram
}

func newInstruments() *instruments {
	meter := otel.Meter(reviewagent.TracerNameOrchestrator)

	reviewRuns, _ := meter.Int64Counter("review_runs_total",
		metric.WithDescription("Total number of weekly review runs started"))
	reviewRunsFailed, _ := meter.Int64Counter("review_runs_failed_total",
		metric.WithDescription("Total number of weekly review runs that failed"))
	agentRuns, _ := meter.Int64Counter("agent_runs_total",
		metric.WithDescription("Total number of specialist agent runs by outcome"))
	agentRounds, _ := meter.Int64Counter("agent_rounds_total",
		metric.WithDescription("Total number of model rounds across agents"))
	toolCalls, _ := meter.Int64Counter("tool_calls_total",
		metric.WithDescription("Total number of tool calls executed"))
	fallbacks, _ := meter.Int64Counter("coordinator_fallbacks_total",
		metric.WithDescription("Total number of coordinator outputs that needed the fallback review"))

	llmResponseTime, _ := meter.Float64Histogram("llm_response_time_seconds",
		metric.WithDescription("Time taken to receive response from LLM in seconds"))
	reviewDuration, _ := meter.Float64Histogram("review_duration_seconds",
		metric.WithDescription("Total duration of a weekly review in seconds"))
	toolExecutionTime, _ := meter.Float64Histogram("tool_execution_time_seconds",
		metric.WithDescription("Time taken to execute individual tools in seconds"))

	return &instruments{
		reviewRuns:        reviewRuns,
		reviewRunsFailed:  reviewRunsFailed,
		agentRuns:         agentRuns,
		agentRounds:       agentRounds,
		toolCalls:         toolCalls,
		fallbacks:         fallbacks,
		llmResponseTime:   llmResponseTime,
		reviewDuration:    reviewDuration,
		toolExecutionTime: toolExecutionTime,
	}
}

func (in *instruments) recordLLM(ctx context.Context, agent string, start time.Time) {
	in.llmResponseTime.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("agent", agent)))
}

func (in *instruments) recordTool(ctx context.Context, agent, tool string, start time.Time) {
	attrs := metric.WithAttributes(attribute.String("agent", agent), attribute.String("tool", tool))
	in.toolCalls.Add(ctx, 1, attrs)
	in.toolExecutionTime.Record(ctx, time.Since(start).Seconds(), attrs)
}
