package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"reviewagent/coordinator"
	"reviewagent/tools"
)

// mockHTTPClient implements the HTTPClient interface for testing
type mockHTTPClient struct {
	response *http.Response
	err      error
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.response, m.err
}

// createMockResponse creates a mock HTTP response
func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(ClientOpts{BaseEndpoint: "http://localhost:11434/", ModelID: "llama3.1"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.endpoint != "http://localhost:11434/api/chat" {
		t.Errorf("endpoint = %q", c.endpoint)
	}
	if c.options.Temperature != 0.6 {
		t.Errorf("temperature = %v, want 0.6", c.options.Temperature)
	}

	if _, err := NewClient(ClientOpts{BaseEndpoint: "http://localhost:11434"}); err == nil {
		t.Error("expected error for missing model id")
	}
}

func TestClient_Invoke(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = io.WriteString(w, `{"message":{"role":"assistant","content":"","tool_calls":[
			{"function":{"name":"check_wearables","arguments":{"metric":"all"}}},
			{"function":{"name":"research_nutrition","arguments":{"query":"sleep"}}}
		]},"done_reason":"stop"}`)
	}))
	defer srv.Close()

	c, err := NewClient(ClientOpts{BaseEndpoint: srv.URL, ModelID: "llama3.1", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}

	prompt := coordinator.Prompt{
		System:   "You are the Wellness agent.",
		Messages: []coordinator.Message{coordinator.NewUserMessage("Analyze wellness.")},
		Tools:    tools.NewRegistry(tools.NewNoWearables()).Definitions(),
	}

	resp, err := c.Invoke(context.Background(), prompt)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	want := []tools.Call{
		{Name: "check_wearables", Input: map[string]any{"metric": "all"}, ToolUseID: "call_1_0"},
		{Name: "research_nutrition", Input: map[string]any{"query": "sleep"}, ToolUseID: "call_1_1"},
	}
	if !reflect.DeepEqual(resp.ToolCalls, want) {
		t.Errorf("ToolCalls = %+v, want %+v", resp.ToolCalls, want)
	}

	if got.Model != "llama3.1" || got.Stream {
		t.Errorf("unexpected request header fields: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if len(got.Tools) != 1 || got.Tools[0].Function.Name != "check_wearables" {
		t.Fatalf("tools = %+v", got.Tools)
	}
	if got.Tools[0].Function.Parameters["type"] != "object" {
		t.Errorf("parameters = %+v", got.Tools[0].Function.Parameters)
	}
}

func TestClient_InvokeErrors(t *testing.T) {
	tests := []struct {
		name     string
		response *http.Response
		err      error
		wantErr  bool
		want     string
	}{
		{
			name:     "non-200 status",
			response: createMockResponse(http.StatusInternalServerError, "boom"),
			wantErr:  true,
		},
		{
			name:    "transport error",
			err:     io.ErrUnexpectedEOF,
			wantErr: true,
		},
		{
			name:     "undecodable body",
			response: createMockResponse(http.StatusOK, "not json"),
			wantErr:  true,
		},
		{
			name:     "final text",
			response: createMockResponse(http.StatusOK, `{"message":{"role":"assistant","content":"Sleep averaged 7h."}}`),
			want:     "Sleep averaged 7h.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{
				endpoint:   "http://localhost:11434/api/chat",
				model:      "llama3.1",
				httpClient: &mockHTTPClient{response: tt.response, err: tt.err},
			}
			resp, err := c.Invoke(context.Background(), coordinator.Prompt{Messages: []coordinator.Message{coordinator.NewUserMessage("hi")}})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Invoke() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && resp.Content != tt.want {
				t.Errorf("Content = %q, want %q", resp.Content, tt.want)
			}
		})
	}
}

func TestClient_BuildRequest(t *testing.T) {
	c := &Client{model: "m", options: options{Temperature: 0.6}}

	prompt := coordinator.Prompt{
		System: "sys",
		Messages: []coordinator.Message{
			coordinator.NewUserMessage("go"),
			coordinator.NewAssistantMessage(coordinator.Response{
				Content:   "checking",
				ToolCalls: []tools.Call{{Name: "analyze_meals", Input: map[string]any{"focus": "all"}, ToolUseID: "call_1_0"}},
			}),
			coordinator.NewToolResultMessage([]coordinator.ToolResult{
				{ToolUseID: "call_1_0", ToolName: "analyze_meals", Text: `{"daysLogged":2}`},
			}),
		},
		Inference: &coordinator.Inference{MaxTokens: 2048, Temperature: 0.5},
	}

	req, err := c.buildRequest(prompt)
	if err != nil {
		t.Fatal(err)
	}

	if len(req.Messages) != 4 {
		t.Fatalf("messages = %+v", req.Messages)
	}
	assistant := req.Messages[2]
	if assistant.Role != "assistant" || assistant.Content != "checking" || len(assistant.ToolCalls) != 1 {
		t.Errorf("assistant = %+v", assistant)
	}
	if assistant.ToolCalls[0].Function.Name != "analyze_meals" {
		t.Errorf("tool call = %+v", assistant.ToolCalls[0])
	}
	toolMsg := req.Messages[3]
	if toolMsg.Role != "tool" || toolMsg.Name != "analyze_meals" || toolMsg.Content != `{"daysLogged":2}` {
		t.Errorf("tool message = %+v", toolMsg)
	}
	if req.Options.Temperature != 0.5 || req.Options.NumPredict != 2048 {
		t.Errorf("options = %+v", req.Options)
	}
	if len(req.Tools) != 0 {
		t.Errorf("tools = %+v", req.Tools)
	}
}
