package slack_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"reviewagent"
	"reviewagent/slack"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockDoer struct {
	resp   *http.Response
	err    error
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return m.resp, m.err
}

func TestNewClient(t *testing.T) {
	webhook := "http://slack.com/webhook"
	client := slack.NewClient(webhook, &mockDoer{})
	must.NotNil(t, client, "expected non-nil client")
}

func TestPostMessage(t *testing.T) {
	tests := []struct {
		name    string
		doFunc  func(req *http.Request) (*http.Response, error)
		wantErr error
	}{
		{
			name: "success",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
			},
			wantErr: nil,
		},
		{
			name: "failure status",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: io.NopCloser(bytes.NewBufferString("bad request"))}, nil
			},
			wantErr: fmt.Errorf("failed to post message: 400 Bad Request"),
		},
		{
			name: "do error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network error")
			},
			wantErr: fmt.Errorf("network error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: tt.doFunc})
			err := client.PostMessage(context.Background(), "#general", "Hello, world!")
			should.Equal(t, tt.wantErr, err)
		})
	}
}

func TestFormatReview(t *testing.T) {
	summary := "Solid week."
	score := 8
	review := reviewagent.Review{
		ReviewFields: reviewagent.ReviewFields{
			Summary:         &summary,
			Recommendations: []string{"Add a vegetable at lunch", "Walk after dinner"},
			WeeklyScore:     &score,
		},
		RoutingDecision: reviewagent.RoutingDecision{
			AgentsInvoked: []string{reviewagent.AgentMealAnalyst, reviewagent.AgentWellness},
		},
	}

	got := slack.FormatReview(review)
	should.Equal(t, "*Weekly review* (score 8/10)\n"+
		"\n*Summary*\nSolid week.\n"+
		"\n*Recommendations*\n• Add a vegetable at lunch\n• Walk after dinner\n"+
		"\n_Agents: Meal Analyst, Wellness Agent_", got)

	should.Equal(t, "*Weekly review*", slack.FormatReview(reviewagent.Review{}))
}

func TestPostReview(t *testing.T) {
	var body map[string]any
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		must.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
	}}

	score := 5
	client := slack.NewClient("http://example.com/webhook", doer)
	err := client.PostReview(context.Background(), "#fitness", reviewagent.Review{
		ReviewFields: reviewagent.ReviewFields{WeeklyScore: &score},
	})
	must.NoError(t, err)
	should.Equal(t, "#fitness", body["channel"])
	should.Equal(t, "*Weekly review* (score 5/10)", body["text"])
}
