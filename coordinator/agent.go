package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"reviewagent"
	"reviewagent/tools"
)

const (
	// DefaultMaxRounds bounds the model invocations of one agent run.
	DefaultMaxRounds = 4

	// RoundsExhaustedOutput is returned when the ceiling is hit before a final answer.
	RoundsExhaustedOutput = "Agent reached maximum rounds without final response."

	stepInputMaxChars = 80
)

type TaskKind string

const (
	TaskMeal     TaskKind = "meal"
	TaskWellness TaskKind = "wellness"
)

// Task is one specialist's immutable work order.
type Task struct {
	Label        string
	StepLabel    string
	Kind         TaskKind
	SystemPrompt string
	UserPrompt   string
	Tools        tools.Registry
}

type Outcome string

const (
	OutcomeCompleted       Outcome = "completed"
	OutcomeRoundsExhausted Outcome = "rounds_exhausted"
	OutcomeSkipped         Outcome = "skipped"
	OutcomeFailed          Outcome = "failed"
)

// AgentResult is produced exactly once per agent run, or substituted by the orchestrator.
type AgentResult struct {
	Output  string
	Steps   []reviewagent.StepRecord
	Outcome Outcome
	Rounds  int
}

// Agent drives one specialist through the bounded tool-use loop. It holds no per-run state,
// so a single Agent may run several tasks concurrently.
type Agent struct {
	llm       LLM
	maxRounds int
	logger    reviewagent.CoordinationLogger
	inst      *instruments
}

// NewAgent creates an agent. A maxRounds below 1 falls back to DefaultMaxRounds.
func NewAgent(llm LLM, maxRounds int, logger reviewagent.CoordinationLogger) *Agent {
	if maxRounds < 1 {
		maxRounds = DefaultMaxRounds
	}
	if logger == nil {
		logger = reviewagent.NewNoOpCoordinationLogger()
	}
	return &Agent{
		llm:       llm,
		maxRounds: maxRounds,
		logger:    logger,
		inst:      newInstruments(),
	}
}

// Run executes the task until the model answers without tool calls or the round budget runs out.
// A model invocation error is returned as is, along with the steps recorded so far.
func (a *Agent) Run(ctx context.Context, task Task) (AgentResult, error) {
	ctx, span := otel.Tracer(reviewagent.TracerNameOrchestrator).Start(ctx, "Agent.Run")
	defer span.End()
	span.SetAttributes(attribute.String("agent", task.Label))

	slog.Info("AGENT: Starting run", "agent", task.Label, "tools", len(task.Tools), "max_rounds", a.maxRounds)

	prompt := NewPrompt(task)
	result := AgentResult{Steps: []reviewagent.StepRecord{}}

	for round := 1; round <= a.maxRounds; round++ {
		result.Rounds = round
		a.inst.agentRounds.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", task.Label)))

		res, err := a.round(ctx, task, &prompt, round, &result)
		if err != nil {
			result.Outcome = OutcomeFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			a.countRun(ctx, task, result.Outcome)
			return result, fmt.Errorf("%s round %d: %w", task.Label, round, err)
		}

		if len(res.ToolCalls) == 0 {
			result.Output = res.Content
			result.Outcome = OutcomeCompleted
			slog.Info("AGENT: Final response received", "agent", task.Label, "round", round, "output_len", len(res.Content), "steps", len(result.Steps))
			a.countRun(ctx, task, result.Outcome)
			return result, nil
		}
	}

	slog.Warn("AGENT: Reached maximum rounds without final response", "agent", task.Label, "rounds", a.maxRounds, "steps", len(result.Steps))
	result.Output = RoundsExhaustedOutput
	result.Outcome = OutcomeRoundsExhausted
	a.countRun(ctx, task, result.Outcome)
	return result, nil
}

// round performs one model invocation and, if tools were requested, answers all of them.
func (a *Agent) round(ctx context.Context, task Task, prompt *Prompt, round int, result *AgentResult) (Response, error) {
	ctx, span := otel.Tracer(reviewagent.TracerNameOrchestrator).Start(ctx, fmt.Sprintf("Agent.Round.%d", round))
	defer span.End()

	roundLog := reviewagent.RoundLog{Agent: task.Label, Round: round, Timestamp: time.Now()}

	start := time.Now()
	res, err := a.llm.Invoke(ctx, *prompt)
	a.inst.recordLLM(ctx, task.Label, start)
	if err != nil {
		roundLog.Error = err.Error()
		roundLog.Outcome = string(OutcomeFailed)
		a.logRound(roundLog)
		return Response{}, err
	}
	roundLog.LLMOutput = res

	slog.Info("AGENT: LLM response received",
		"agent", task.Label,
		"round", round,
		"content_length", len(res.Content),
		"tool_calls", len(res.ToolCalls),
	)

	if len(res.ToolCalls) == 0 {
		roundLog.Outcome = string(OutcomeCompleted)
		a.logRound(roundLog)
		return res, nil
	}

	prompt.Messages = append(prompt.Messages, NewAssistantMessage(res))

	results := make([]ToolResult, 0, len(res.ToolCalls))
	for _, call := range res.ToolCalls {
		slog.Info("AGENT: Handling tool call", "agent", task.Label, "tool", call.Name, "round", round)

		toolStart := time.Now()
		out := task.Tools.Execute(ctx, call.Name, call.Input)
		a.inst.recordTool(ctx, task.Label, call.Name, toolStart)

		result.Steps = append(result.Steps, reviewagent.StepRecord{
			Agent:   task.StepLabel,
			Tool:    call.Name,
			Summary: StepSummary(call),
		})
		results = append(results, ToolResult{ToolUseID: call.ToolUseID, ToolName: call.Name, Text: out})
		roundLog.ToolCalls = append(roundLog.ToolCalls, reviewagent.ToolCallLog{Name: call.Name, Input: call.Input, Output: out})
	}

	prompt.Messages = append(prompt.Messages, NewToolResultMessage(results))
	a.logRound(roundLog)
	return res, nil
}

// StepSummary renders a tool call as name(<input JSON, at most 80 characters>).
func StepSummary(call tools.Call) string {
	input := call.Input
	if input == nil {
		input = map[string]any{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(input); err != nil {
		return call.Name + "()"
	}
	return fmt.Sprintf("%s(%s)", call.Name, tools.Truncate(strings.TrimSuffix(buf.String(), "\n"), stepInputMaxChars))
}

func (a *Agent) countRun(ctx context.Context, task Task, outcome Outcome) {
	a.inst.agentRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", task.Label),
		attribute.String("outcome", string(outcome)),
	))
}

func (a *Agent) logRound(round reviewagent.RoundLog) {
	if err := a.logger.LogRound(round); err != nil {
		slog.Error("AGENT: Failed to log round", "agent", round.Agent, "round", round.Round, "error", err)
	}
}
