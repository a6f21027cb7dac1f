package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewagent"
)

func sampleReview() reviewagent.Review {
	summary := "Consistent logging, short sleep."
	score := 7
	return reviewagent.Review{
		ID:        "b3c1",
		CreatedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		ReviewFields: reviewagent.ReviewFields{
			Summary:         &summary,
			Recommendations: []string{"Sleep 30 minutes earlier"},
			WeeklyScore:     &score,
		},
		AgentSteps: []reviewagent.StepRecord{
			{Agent: reviewagent.AgentCoordinator, Tool: "synthesize", Summary: "Synthesized specialist reports into final review"},
		},
		RoutingDecision: reviewagent.RoutingDecision{
			MealAgentRun:  true,
			WellnessMode:  reviewagent.WellnessModeFull,
			AgentsInvoked: []string{reviewagent.AgentMealAnalyst, reviewagent.AgentWellness},
		},
	}
}

func TestLoadInput(t *testing.T) {
	tests := []struct {
		name        string
		state       InputState
		expectError bool
		meals       int
	}{
		{
			name:  "valid input",
			state: NewTestInputState([]byte(`{"meals":[{"id":"1","date":"2025-03-09","mealType":"lunch","name":"Wrap","macros":{"calories":500,"protein":30,"carbs":50,"fat":15}}],"userName":"Lee"}`)),
			meals: 1,
		},
		{
			name:        "load error",
			state:       NewTestInputStateWithError(),
			expectError: true,
		},
		{
			name:        "invalid json",
			state:       NewTestInputState([]byte(`{"meals":`)),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := LoadInput(context.Background(), tt.state)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, in.Meals, tt.meals)
		})
	}
}

func TestReviewKey(t *testing.T) {
	review := sampleReview()
	assert.Equal(t, "user-1/2025-03-10/b3c1", ReviewKey("user-1", review))
	assert.Equal(t, "anonymous/2025-03-10/b3c1", ReviewKey("", review))
	assert.Equal(t, "__etc_passwd/2025-03-10/b3c1", ReviewKey("../etc/passwd", review))
}

func TestMemoryReviewStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReviewStore()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	review := sampleReview()
	require.NoError(t, store.Save(ctx, "k", review))

	review.Recommendations[0] = "mutated"
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "Sleep 30 minutes earlier", got.Recommendations[0])
}
