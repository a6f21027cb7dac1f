package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"reviewagent"
	"reviewagent/tools"
)

const (
	defaultMealOutput     = "No meal data available."
	defaultWellnessOutput = "No wellness data available."
	synthesizeStepSummary = "Synthesized specialist reports into final review"
	summaryReportMaxChars = 500
)

// Options configure an Orchestrator. Zero values select the defaults.
type Options struct {
	MaxRounds          int
	SynthesisInference Inference
	Logger             reviewagent.CoordinationLogger

	// Research backs the research_nutrition tool. Nil makes every lookup return the
	// unavailable message.
	Research tools.Tool

	Now   func() time.Time
	NewID func() string
}

// Orchestrator runs the routed specialists in parallel and merges them through the coordinator.
type Orchestrator struct {
	agent       *Agent
	synthesizer *Synthesizer
	research    tools.Tool
	now         func() time.Time
	newID       func() string
	inst        *instruments
}

func NewOrchestrator(llm LLM, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Orchestrator{
		agent:       NewAgent(llm, opts.MaxRounds, opts.Logger),
		synthesizer: NewSynthesizer(llm, opts.SynthesisInference, opts.Logger),
		research:    opts.Research,
		now:         opts.Now,
		newID:       opts.NewID,
		inst:        newInstruments(),
	}
}

// Run produces one weekly review. Agent failures degrade to default reports; only a failed
// coordinator call fails the run.
func (o *Orchestrator) Run(ctx context.Context, input reviewagent.ReviewInput) (reviewagent.Review, error) {
	ctx, span := otel.Tracer(reviewagent.TracerNameOrchestrator).Start(ctx, "Orchestrator.Run")
	defer span.End()

	start := time.Now()
	defer func() {
		o.inst.reviewDuration.Record(ctx, time.Since(start).Seconds())
	}()
	o.inst.reviewRuns.Add(ctx, 1)

	input = input.Normalize()
	decision := Decide(input.HasMealData(), input.HasWearableData())
	span.SetAttributes(
		attribute.Bool("meal_agent_run", decision.MealAgentRun),
		attribute.String("wellness_mode", string(decision.WellnessMode)),
	)

	slog.Info("ORCHESTRATOR: Routing decided",
		"meal_agent_run", decision.MealAgentRun,
		"wellness_mode", decision.WellnessMode,
		"agents", decision.AgentsInvoked,
		"meals", len(input.Meals),
		"wearable_days", len(input.WearableData),
	)

	tasks := BuildTasks(decision, input, o.research, o.now)
	results := make([]AgentResult, len(tasks))
	errs := make([]error, len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			results[i], errs[i] = o.runTask(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	meal := AgentResult{Output: SkippedMealOutput(input.UserName), Steps: []reviewagent.StepRecord{}, Outcome: OutcomeSkipped}
	wellness := AgentResult{Output: defaultWellnessOutput, Steps: []reviewagent.StepRecord{}, Outcome: OutcomeFailed}
	var failed []string

	for i, task := range tasks {
		res := results[i]
		if errs[i] != nil {
			slog.Error("ORCHESTRATOR: Agent failed; substituting default report", "agent", task.Label, "error", errs[i])
			failed = append(failed, task.Label)
			res = AgentResult{Output: defaultOutput(task.Kind), Steps: []reviewagent.StepRecord{}, Outcome: OutcomeFailed}
		}
		switch task.Kind {
		case TaskMeal:
			meal = res
		case TaskWellness:
			wellness = res
		}
	}

	syn, err := o.synthesizer.Synthesize(ctx, input, meal.Output, wellness.Output)
	if err != nil {
		o.inst.reviewRunsFailed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if len(failed) > 0 {
			err = errors.Join(err, fmt.Errorf("agents failed before synthesis: %v", failed))
		}
		return reviewagent.Review{}, err
	}

	steps := make([]reviewagent.StepRecord, 0, len(meal.Steps)+len(wellness.Steps)+1)
	steps = append(steps, meal.Steps...)
	steps = append(steps, wellness.Steps...)
	steps = append(steps, reviewagent.StepRecord{
		Agent:   reviewagent.AgentCoordinator,
		Tool:    "synthesize",
		Summary: synthesizeStepSummary,
	})

	review := reviewagent.Review{
		ID:              o.newID(),
		CreatedAt:       o.now().UTC(),
		ReviewFields:    syn.Review,
		AgentSteps:      steps,
		RoutingDecision: decision,
		Agents: reviewagent.AgentSummaries{
			MealAnalyst: reviewagent.MealAgentSummary{
				Report:    tools.Truncate(meal.Output, summaryReportMaxChars),
				ToolCalls: len(meal.Steps),
				Skipped:   !decision.MealAgentRun,
			},
			WellnessAgent: reviewagent.WellnessAgentSummary{
				Report:    tools.Truncate(wellness.Output, summaryReportMaxChars),
				ToolCalls: len(wellness.Steps),
				Mode:      decision.WellnessMode,
			},
			Coordinator: reviewagent.CoordinatorSummary{
				Synthesized: true,
				Fallback:    syn.Fallback,
			},
		},
	}

	slog.Info("ORCHESTRATOR: Review complete",
		"review_id", review.ID,
		"steps", len(review.AgentSteps),
		"fallback", syn.Fallback,
		"failed_agents", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return review, nil
}

// runTask runs one agent and turns a panic in its model or tools into an error for that agent.
func (o *Orchestrator) runTask(ctx context.Context, task Task) (res AgentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ORCHESTRATOR: Agent panicked", "agent", task.Label, "panic", r)
			res, err = AgentResult{}, fmt.Errorf("agent %s panicked: %v", task.Label, r)
		}
	}()
	return o.agent.Run(ctx, task)
}

func defaultOutput(kind TaskKind) string {
	if kind == TaskMeal {
		return defaultMealOutput
	}
	return defaultWellnessOutput
}
