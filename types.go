package reviewagent

import (
	"net/http"
	"time"
)

// HTTPClient is the subset of *http.Client used by the HTTP-based clients.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Agent labels used in routing decisions and step traces.
const (
	AgentMealAnalyst          = "Meal Analyst"
	AgentWellness             = "Wellness Agent"
	AgentWellnessResearchOnly = "Wellness Agent (research-only)"
	AgentCoordinator          = "Coordinator"
)

const (
	defaultGoal     = "general fitness"
	defaultUserName = "the user"
)

// DefaultTargets are the daily macro targets used when the caller supplies none.
var DefaultTargets = Macros{Calories: 2000, Protein: 150, Carbs: 200, Fat: 65}

type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// MealEntry is a single logged meal. Date is an ISO date (YYYY-MM-DD) or RFC 3339 timestamp.
type MealEntry struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	MealType string `json:"mealType"`
	Name     string `json:"name"`
	Macros   Macros `json:"macros"`
	Notes    string `json:"notes,omitempty"`
	LoggedAt string `json:"loggedAt,omitempty"`
}

// WearableDaySummary is one day of wearable metrics. Metrics a device did not report are nil.
type WearableDaySummary struct {
	Date             string   `json:"date"`
	Provider         string   `json:"provider,omitempty"`
	Steps            *float64 `json:"steps,omitempty"`
	CaloriesBurned   *float64 `json:"caloriesBurned,omitempty"`
	ActiveMinutes    *float64 `json:"activeMinutes,omitempty"`
	SleepScore       *float64 `json:"sleepScore,omitempty"`
	SleepDuration    *float64 `json:"sleepDuration,omitempty"` // minutes
	ReadinessScore   *float64 `json:"readinessScore,omitempty"`
	HeartRateAvg     *float64 `json:"heartRateAvg,omitempty"`
	HeartRateResting *float64 `json:"heartRateResting,omitempty"`
	Weight           *float64 `json:"weight,omitempty"` // lbs
	BodyFatPercent   *float64 `json:"bodyFatPercent,omitempty"`
}

// ReviewInput is everything the caller hands to the orchestrator. It is read-only during a run.
type ReviewInput struct {
	Meals        []MealEntry          `json:"meals"`
	Targets      *Macros              `json:"targets,omitempty"`
	WearableData []WearableDaySummary `json:"wearableData"`
	Goal         string               `json:"goal,omitempty"`
	UserName     string               `json:"userName,omitempty"`
}

// Normalize returns a copy of the input with defaults applied for missing targets, goal and name.
func (in ReviewInput) Normalize() ReviewInput {
	out := in
	if out.Targets == nil {
		t := DefaultTargets
		out.Targets = &t
	}
	if out.Goal == "" {
		out.Goal = defaultGoal
	}
	if out.UserName == "" {
		out.UserName = defaultUserName
	}
	return out
}

func (in ReviewInput) HasMealData() bool     { return len(in.Meals) > 0 }
func (in ReviewInput) HasWearableData() bool { return len(in.WearableData) > 0 }

type WellnessMode string

const (
	WellnessModeFull         WellnessMode = "full"
	WellnessModeResearchOnly WellnessMode = "research-only"
)

// RoutingDecision records which specialists ran and in which mode.
type RoutingDecision struct {
	MealAgentRun  bool         `json:"mealAgentRun"`
	WellnessMode  WellnessMode `json:"wellnessMode"`
	AgentsInvoked []string     `json:"agentsInvoked"`
}

// StepRecord is one tool invocation in the step trace.
type StepRecord struct {
	Agent   string `json:"agent"`
	Tool    string `json:"tool"`
	Summary string `json:"summary"`
}

// ReviewFields are the structured fields the coordinator produces. Fields are pointers so that
// a field the model omitted stays absent instead of silently becoming a zero value.
type ReviewFields struct {
	Summary          *string  `json:"summary,omitempty"`
	MealAnalysis     *string  `json:"mealAnalysis,omitempty"`
	WearableInsights *string  `json:"wearableInsights,omitempty"`
	Recommendations  []string `json:"recommendations,omitempty"`
	WeeklyScore      *int     `json:"weeklyScore,omitempty"`
	Reasoning        *string  `json:"reasoning,omitempty"`
}

type MealAgentSummary struct {
	Report    string `json:"report"`
	ToolCalls int    `json:"toolCalls"`
	Skipped   bool   `json:"skipped"`
}

type WellnessAgentSummary struct {
	Report    string       `json:"report"`
	ToolCalls int          `json:"toolCalls"`
	Mode      WellnessMode `json:"mode"`
}

type CoordinatorSummary struct {
	Synthesized bool `json:"synthesized"`
	Fallback    bool `json:"fallback"`
}

// AgentSummaries give the UI a short view of each specialist's contribution.
type AgentSummaries struct {
	MealAnalyst   MealAgentSummary     `json:"mealAnalyst"`
	WellnessAgent WellnessAgentSummary `json:"wellnessAgent"`
	Coordinator   CoordinatorSummary   `json:"coordinator"`
}

// Review is the final weekly review returned to the caller.
type Review struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ReviewFields
	AgentSteps      []StepRecord    `json:"agentSteps"`
	RoutingDecision RoutingDecision `json:"routingDecision"`
	Agents          AgentSummaries  `json:"agents"`
}
