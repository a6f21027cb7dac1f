package coordinator

import (
	"encoding/json"
	"fmt"

	"reviewagent"
)

const coordinatorSystemPrompt = `You are the coordinator agent for a fitness review system. Your job is to synthesize reports from specialist agents into a single comprehensive weekly review.

You will receive:
1. A meal analysis report from the Meal Analyst agent
2. A wellness report from the Wellness agent (wearable data + research)

Based on these reports, produce a final structured review as JSON:
{
  "summary": "2-3 sentence high-level summary",
  "mealAnalysis": "Key findings about nutrition patterns",
  "wearableInsights": "Key findings from wearable/wellness data",
  "recommendations": ["actionable recommendation 1", "recommendation 2", ...],
  "weeklyScore": number from 1-10,
  "reasoning": "Brief explanation of your scoring and recommendations"
}

Be concrete and actionable. No generic advice. Tailor everything to the data.`

const mealAgentSystemPrompt = `You are the Meal Analyst agent for a fitness review system. You specialize in nutritional analysis.

You have tools to analyze the user's meal data. Use them to understand:
- Logging consistency (how many days, meals per day)
- Macro adherence (calories, protein, carbs, fat vs targets)
- Meal timing patterns
- Nutritional gaps or excesses

After analysis, produce a concise report with specific findings and concerns. Focus on patterns, not individual meals.`

const wellnessAgentSystemPrompt = `You are the Wellness agent for a fitness review system. You specialize in wearable data analysis and evidence-based health research.

You have tools to:
1. Check wearable data (sleep, activity, heart rate)
2. Research current nutrition/fitness guidelines

Use both tools to produce a report that connects the user's biometrics to actionable wellness insights. If no wearable data is available, focus on research relevant to their goal.`

// NewPrompt seeds a conversation from a task: its system prompt, one user message and its tool catalog.
func NewPrompt(task Task) Prompt {
	return Prompt{
		System:   task.SystemPrompt,
		Messages: []Message{NewUserMessage(task.UserPrompt)},
		Tools:    task.Tools.Definitions(),
	}
}

func mealUserPrompt(in reviewagent.ReviewInput) string {
	targets, _ := json.Marshal(in.Targets)
	return fmt.Sprintf("Analyze the meal data for %s. Their goal is %s.\nDaily targets: %s.\n\nUse the analyze_meals tool with focus 'all' to get the full picture, then produce your report.",
		in.UserName, in.Goal, targets)
}

func wellnessUserPrompt(in reviewagent.ReviewInput) string {
	return fmt.Sprintf("Analyze wellness data for %s. Their goal is %s.\n\nUse check_wearables with metric 'all' to review their biometrics, then use research_nutrition to find relevant guidelines for their goal. Produce a comprehensive wellness report.",
		in.UserName, in.Goal)
}

func researchOnlyUserPrompt(in reviewagent.ReviewInput) string {
	return fmt.Sprintf("The user %s has not connected a wearable device. Their goal is %s.\n\nSkip check_wearables (no data available). Instead, use research_nutrition to find current evidence-based guidelines relevant to their goal. Produce a wellness report focused on research findings.",
		in.UserName, in.Goal)
}

func synthesisUserPrompt(userName, goal, mealReport, wellnessReport string) string {
	return fmt.Sprintf(`You are producing a weekly fitness review for %s (goal: %s).

Here is the Meal Analyst agent's report:
---
%s
---

Here is the Wellness agent's report:
---
%s
---

Now synthesize these into a single structured JSON review. Respond with valid JSON only, no markdown:
{
  "summary": "2-3 sentence overview",
  "mealAnalysis": "key nutrition findings",
  "wearableInsights": "key wellness findings",
  "recommendations": ["rec 1", "rec 2", "rec 3"],
  "weeklyScore": number 1-10,
  "reasoning": "why this score and these recommendations"
}`, userName, goal, mealReport, wellnessReport)
}
