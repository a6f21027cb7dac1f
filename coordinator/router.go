package coordinator

import (
	"fmt"
	"time"

	"reviewagent"
	"reviewagent/tools"
)

// Decide picks which specialists run. The wellness agent always runs; without wearable data it
// switches to research-only mode.
func Decide(hasMealData, hasWearableData bool) reviewagent.RoutingDecision {
	d := reviewagent.RoutingDecision{
		MealAgentRun:  hasMealData,
		WellnessMode:  reviewagent.WellnessModeResearchOnly,
		AgentsInvoked: []string{},
	}
	if hasWearableData {
		d.WellnessMode = reviewagent.WellnessModeFull
	}

	if d.MealAgentRun {
		d.AgentsInvoked = append(d.AgentsInvoked, reviewagent.AgentMealAnalyst)
	}
	if d.WellnessMode == reviewagent.WellnessModeFull {
		d.AgentsInvoked = append(d.AgentsInvoked, reviewagent.AgentWellness)
	} else {
		d.AgentsInvoked = append(d.AgentsInvoked, reviewagent.AgentWellnessResearchOnly)
	}
	return d
}

// BuildTasks constructs the agent tasks for a decision. Each task gets its own registry bound to
// the input's data. research is shared by the wellness task in both modes.
func BuildTasks(d reviewagent.RoutingDecision, in reviewagent.ReviewInput, research tools.Tool, now func() time.Time) []Task {
	in = in.Normalize()
	if now == nil {
		now = time.Now
	}
	if research == nil {
		research = tools.NewResearchNutrition(nil, tools.ResearchOptions{})
	}

	var tasks []Task
	if d.MealAgentRun {
		tasks = append(tasks, Task{
			Label:        reviewagent.AgentMealAnalyst,
			StepLabel:    reviewagent.AgentMealAnalyst,
			Kind:         TaskMeal,
			SystemPrompt: mealAgentSystemPrompt,
			UserPrompt:   mealUserPrompt(in),
			Tools:        tools.NewRegistry(tools.NewAnalyzeMeals(in.Meals, *in.Targets, now)),
		})
	}

	wellness := Task{
		Label:        reviewagent.AgentWellness,
		StepLabel:    reviewagent.AgentWellness,
		Kind:         TaskWellness,
		SystemPrompt: wellnessAgentSystemPrompt,
		UserPrompt:   wellnessUserPrompt(in),
		Tools:        tools.NewRegistry(tools.NewCheckWearables(in.WearableData, now), research),
	}
	if d.WellnessMode == reviewagent.WellnessModeResearchOnly {
		wellness.Label = reviewagent.AgentWellnessResearchOnly
		wellness.UserPrompt = researchOnlyUserPrompt(in)
		wellness.Tools = tools.NewRegistry(tools.NewNoWearables(), research)
	}
	tasks = append(tasks, wellness)

	return tasks
}

// SkippedMealOutput is the meal report used when routing skips the Meal Analyst.
func SkippedMealOutput(userName string) string {
	return fmt.Sprintf("No meal data available for %s this week. They haven't logged any meals yet.", userName)
}
