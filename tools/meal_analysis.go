package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"reviewagent"
)

const (
	lookbackDays = 7

	// A day hits its calorie target when within ±15% of it, and its protein target at >= 90%.
	calorieTolerance   = 0.15
	proteinHitFraction = 0.9

	consistencyGood     = "good"
	consistencyModerate = "moderate"
	consistencyNeedsImp = "needs improvement"
)

// AnalyzeMeals aggregates the caller's meal history into summary statistics.
type AnalyzeMeals struct {
	meals   []reviewagent.MealEntry
	targets reviewagent.Macros
	now     func() time.Time
}

func NewAnalyzeMeals(meals []reviewagent.MealEntry, targets reviewagent.Macros, now func() time.Time) *AnalyzeMeals {
	if now == nil {
		now = time.Now
	}
	return &AnalyzeMeals{meals: meals, targets: targets, now: now}
}

func (t *AnalyzeMeals) Name() string { return "analyze_meals" }
func (t *AnalyzeMeals) Description() string {
	return "Analyze the user's meal logging data. Returns patterns, macro adherence, consistency metrics, and gaps."
}

func (t *AnalyzeMeals) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"focus": {
				Type:        "string",
				Description: "What aspect to analyze: 'adherence', 'patterns', 'gaps', or 'all'",
			},
		},
		Required: []string{"focus"},
	}
}

type DayTotals struct {
	Date      string  `json:"date"`
	Calories  float64 `json:"calories"`
	Protein   float64 `json:"protein"`
	Carbs     float64 `json:"carbs"`
	Fat       float64 `json:"fat"`
	MealCount int     `json:"mealCount"`
}

// MealSummary is the analyze_meals output.
type MealSummary struct {
	Focus             string         `json:"focus,omitempty"`
	DaysLogged        int            `json:"daysLogged"`
	TotalMeals        int            `json:"totalMeals"`
	AvgDailyCalories  int            `json:"avgDailyCalories"`
	AvgDailyProtein   int            `json:"avgDailyProtein"`
	TargetCalories    float64        `json:"targetCalories"`
	TargetProtein     float64        `json:"targetProtein"`
	DaysHitCalories   int            `json:"daysHitCalories"`
	DaysHitProtein    int            `json:"daysHitProtein"`
	MealTypeBreakdown map[string]int `json:"mealTypeBreakdown"`
	DailyDetails      []DayTotals    `json:"dailyDetails"`
	Consistency       string         `json:"consistency"`
}

func (t *AnalyzeMeals) Run(ctx context.Context, input map[string]any) (string, error) {
	focus, ok := stringInput(input, "focus")
	if !ok {
		return "", fmt.Errorf("missing required input %q", "focus")
	}

	summary := SummarizeMeals(t.meals, t.targets, t.now())
	summary.Focus = focus

	b, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("marshal meal summary: %w", err)
	}
	return string(b), nil
}

// SummarizeMeals computes logging consistency and macro adherence over the week before now.
func SummarizeMeals(meals []reviewagent.MealEntry, targets reviewagent.Macros, now time.Time) MealSummary {
	weekAgo := now.AddDate(0, 0, -lookbackDays)

	byDate := map[string]*DayTotals{}
	breakdown := map[string]int{}
	total := 0
	for _, m := range meals {
		day, ok := parseDay(m.Date)
		if !ok || day.Before(weekAgo) {
			continue
		}
		total++
		breakdown[m.MealType]++

		// Timestamps from the same calendar day count as one logged day.
		key := day.Format(time.DateOnly)
		d, exists := byDate[key]
		if !exists {
			d = &DayTotals{Date: key}
			byDate[key] = d
		}
		d.Calories += m.Macros.Calories
		d.Protein += m.Macros.Protein
		d.Carbs += m.Macros.Carbs
		d.Fat += m.Macros.Fat
		d.MealCount++
	}

	details := make([]DayTotals, 0, len(byDate))
	for _, d := range byDate {
		details = append(details, *d)
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Date < details[j].Date })

	out := MealSummary{
		DaysLogged:        len(details),
		TotalMeals:        total,
		TargetCalories:    targets.Calories,
		TargetProtein:     targets.Protein,
		MealTypeBreakdown: breakdown,
		DailyDetails:      details,
		Consistency:       consistencyLabel(len(details)),
	}

	var sumCal, sumPro float64
	for _, d := range details {
		sumCal += d.Calories
		sumPro += d.Protein
		if targets.Calories > 0 && math.Abs(d.Calories-targets.Calories)/targets.Calories <= calorieTolerance {
			out.DaysHitCalories++
		}
		if d.Protein >= targets.Protein*proteinHitFraction {
			out.DaysHitProtein++
		}
	}
	if n := len(details); n > 0 {
		out.AvgDailyCalories = int(math.Round(sumCal / float64(n)))
		out.AvgDailyProtein = int(math.Round(sumPro / float64(n)))
	}

	return out
}

func consistencyLabel(daysLogged int) string {
	switch {
	case daysLogged >= 5:
		return consistencyGood
	case daysLogged >= 3:
		return consistencyModerate
	default:
		return consistencyNeedsImp
	}
}

// parseDay accepts a plain ISO date or an RFC 3339 timestamp.
func parseDay(s string) (time.Time, bool) {
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, true
	}
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return d, true
	}
	return time.Time{}, false
}
