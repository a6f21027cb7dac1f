package slack

import (
	"fmt"
	"strings"

	"reviewagent"
)

// FormatReview renders a review as Slack mrkdwn. Absent fields are left out.
func FormatReview(review reviewagent.Review) string {
	var b strings.Builder

	b.WriteString("*Weekly review*")
	if review.WeeklyScore != nil {
		fmt.Fprintf(&b, " (score %d/10)", *review.WeeklyScore)
	}
	b.WriteString("\n")

	section := func(title string, body *string) {
		if body == nil || *body == "" {
			return
		}
		fmt.Fprintf(&b, "\n*%s*\n%s\n", title, *body)
	}
	section("Summary", review.Summary)
	section("Nutrition", review.MealAnalysis)
	section("Wellness", review.WearableInsights)

	if len(review.Recommendations) > 0 {
		b.WriteString("\n*Recommendations*\n")
		for _, r := range review.Recommendations {
			fmt.Fprintf(&b, "• %s\n", r)
		}
	}

	if agents := review.RoutingDecision.AgentsInvoked; len(agents) > 0 {
		fmt.Fprintf(&b, "\n_Agents: %s_", strings.Join(agents, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}
