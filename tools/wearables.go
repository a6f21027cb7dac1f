package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"reviewagent"
)

const (
	checkWearablesName        = "check_wearables"
	checkWearablesDescription = "Review wearable device data including sleep scores, step counts, heart rate, and activity minutes."

	noRecentWearablesMessage = "No wearable data available for this week. User has not connected a wearable device."
	noDeviceMessage          = "No wearable data available. User has not connected a device."
)

func wearablesSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"metric": {
				Type:        "string",
				Description: "Which metric to check: 'sleep', 'activity', 'heart_rate', or 'all'",
			},
		},
		Required: []string{"metric"},
	}
}

// CheckWearables averages the caller's recent wearable metrics.
type CheckWearables struct {
	history []reviewagent.WearableDaySummary
	now     func() time.Time
}

func NewCheckWearables(history []reviewagent.WearableDaySummary, now func() time.Time) *CheckWearables {
	if now == nil {
		now = time.Now
	}
	return &CheckWearables{history: history, now: now}
}

func (t *CheckWearables) Name() string                    { return checkWearablesName }
func (t *CheckWearables) Description() string             { return checkWearablesDescription }
func (t *CheckWearables) InputSchema() *jsonschema.Schema { return wearablesSchema() }

type SleepStats struct {
	AvgScore           *int `json:"avgScore"`
	AvgDurationMinutes *int `json:"avgDurationMinutes"`
	DataPoints         int  `json:"dataPoints"`
}

type ActivityStats struct {
	AvgSteps          *int `json:"avgSteps"`
	AvgActiveMinutes  *int `json:"avgActiveMinutes"`
	AvgCaloriesBurned *int `json:"avgCaloriesBurned"`
}

type HeartRateStats struct {
	AvgHR        *int `json:"avgHR"`
	AvgRestingHR *int `json:"avgRestingHR"`
}

// WearableSummary is the check_wearables output. Sections not requested by the metric are omitted.
type WearableSummary struct {
	Message      string          `json:"message,omitempty"`
	DaysWithData int             `json:"daysWithData,omitempty"`
	Sleep        *SleepStats     `json:"sleep,omitempty"`
	Activity     *ActivityStats  `json:"activity,omitempty"`
	HeartRate    *HeartRateStats `json:"heartRate,omitempty"`
	AvgReadiness *int            `json:"avgReadiness,omitempty"`
}

func (t *CheckWearables) Run(ctx context.Context, input map[string]any) (string, error) {
	metric, ok := stringInput(input, "metric")
	if !ok {
		return "", fmt.Errorf("missing required input %q", "metric")
	}

	b, err := json.Marshal(SummarizeWearables(t.history, metric, t.now()))
	if err != nil {
		return "", fmt.Errorf("marshal wearable summary: %w", err)
	}
	return string(b), nil
}

// SummarizeWearables averages the requested metric group over the week before now.
func SummarizeWearables(history []reviewagent.WearableDaySummary, metric string, now time.Time) WearableSummary {
	weekAgo := now.AddDate(0, 0, -lookbackDays)

	var recent []reviewagent.WearableDaySummary
	for _, d := range history {
		day, ok := parseDay(d.Date)
		if !ok || day.Before(weekAgo) {
			continue
		}
		recent = append(recent, d)
	}

	if len(recent) == 0 {
		return WearableSummary{Message: noRecentWearablesMessage}
	}

	out := WearableSummary{DaysWithData: len(recent)}
	all := metric == "all"

	if metric == "sleep" || all {
		scores := collect(recent, func(d reviewagent.WearableDaySummary) *float64 { return d.SleepScore })
		durations := collect(recent, func(d reviewagent.WearableDaySummary) *float64 { return d.SleepDuration })
		out.Sleep = &SleepStats{
			AvgScore:           roundedMean(scores),
			AvgDurationMinutes: roundedMean(durations),
			DataPoints:         len(scores),
		}
	}

	if metric == "activity" || all {
		out.Activity = &ActivityStats{
			AvgSteps:          roundedMean(collect(recent, func(d reviewagent.WearableDaySummary) *float64 { return d.Steps })),
			AvgActiveMinutes:  roundedMean(collect(recent, func(d reviewagent.WearableDaySummary) *float64 { return d.ActiveMinutes })),
			AvgCaloriesBurned: roundedMean(collect(recent, func(d reviewagent.WearableDaySummary) *float64 { return d.CaloriesBurned })),
		}
	}

	if metric == "heart_rate" || all {
		out.HeartRate = &HeartRateStats{
			AvgHR:        roundedMean(collect(recent, func(d reviewagent.WearableDaySummary) *float64 { return d.HeartRateAvg })),
			AvgRestingHR: roundedMean(collect(recent, func(d reviewagent.WearableDaySummary) *float64 { return d.HeartRateResting })),
		}
	}

	out.AvgReadiness = roundedMean(collect(recent, func(d reviewagent.WearableDaySummary) *float64 { return d.ReadinessScore }))

	return out
}

func collect(days []reviewagent.WearableDaySummary, field func(reviewagent.WearableDaySummary) *float64) []float64 {
	var vals []float64
	for _, d := range days {
		if v := field(d); v != nil {
			vals = append(vals, *v)
		}
	}
	return vals
}

// roundedMean returns nil when there are no values.
func roundedMean(vals []float64) *int {
	if len(vals) == 0 {
		return nil
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	m := int(math.Round(sum / float64(len(vals))))
	return &m
}

// NoWearables stands in for check_wearables when the user has no device connected.
type NoWearables struct{}

func NewNoWearables() *NoWearables { return &NoWearables{} }

func (t *NoWearables) Name() string                    { return checkWearablesName }
func (t *NoWearables) Description() string             { return checkWearablesDescription }
func (t *NoWearables) InputSchema() *jsonschema.Schema { return wearablesSchema() }

func (t *NoWearables) Run(ctx context.Context, input map[string]any) (string, error) {
	b, _ := json.Marshal(WearableSummary{Message: noDeviceMessage})
	return string(b), nil
}
