package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"reviewagent"
	"reviewagent/tools"
)

const (
	fallbackReasoning = "Multi-agent analysis completed. Review generated from specialist reports."
	fallbackScore     = 5

	minScore = 1
	maxScore = 10
)

// DefaultSynthesisInference is the sampling used for the coordinator call.
var DefaultSynthesisInference = Inference{MaxTokens: 2048, Temperature: 0.5, TopP: 0.9}

// Synthesis is the result of parsing the coordinator output: either the fields the model produced,
// or the deterministic fallback built from the raw text and the specialist reports.
type Synthesis struct {
	Review   reviewagent.ReviewFields
	Raw      string
	Fallback bool
}

// Synthesizer makes the single tool-less coordinator call that merges the specialist reports.
type Synthesizer struct {
	llm       LLM
	inference Inference
	logger    reviewagent.CoordinationLogger
	inst      *instruments
}

func NewSynthesizer(llm LLM, inference Inference, logger reviewagent.CoordinationLogger) *Synthesizer {
	if inference.MaxTokens == 0 {
		inference.MaxTokens = DefaultSynthesisInference.MaxTokens
	}
	if inference.Temperature == 0 {
		inference.Temperature = DefaultSynthesisInference.Temperature
	}
	if inference.TopP == 0 {
		inference.TopP = DefaultSynthesisInference.TopP
	}
	if logger == nil {
		logger = reviewagent.NewNoOpCoordinationLogger()
	}
	return &Synthesizer{llm: llm, inference: inference, logger: logger, inst: newInstruments()}
}

// Synthesize asks the coordinator model for the final review. Only the model call can fail;
// unparseable output degrades to the fallback review.
func (s *Synthesizer) Synthesize(ctx context.Context, in reviewagent.ReviewInput, mealOut, wellnessOut string) (Synthesis, error) {
	ctx, span := otel.Tracer(reviewagent.TracerNameOrchestrator).Start(ctx, "Synthesizer.Synthesize")
	defer span.End()

	in = in.Normalize()
	inference := s.inference
	prompt := Prompt{
		System:    coordinatorSystemPrompt,
		Messages:  []Message{NewUserMessage(synthesisUserPrompt(in.UserName, in.Goal, mealOut, wellnessOut))},
		Inference: &inference,
	}

	roundLog := reviewagent.RoundLog{Agent: reviewagent.AgentCoordinator, Round: 1, Timestamp: time.Now()}

	start := time.Now()
	res, err := s.llm.Invoke(ctx, prompt)
	s.inst.recordLLM(ctx, reviewagent.AgentCoordinator, start)
	if err != nil {
		roundLog.Error = err.Error()
		roundLog.Outcome = string(OutcomeFailed)
		s.logRound(roundLog)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Synthesis{}, fmt.Errorf("coordinator synthesis failed: %w", err)
	}
	roundLog.LLMOutput = res

	syn := ParseReview(res.Content, mealOut, wellnessOut)
	if syn.Fallback {
		slog.Warn("ORCHESTRATOR: Coordinator output was not a JSON review; using fallback", "content_length", len(res.Content))
		s.inst.fallbacks.Add(ctx, 1)
		roundLog.Outcome = "fallback"
	} else {
		roundLog.Outcome = string(OutcomeCompleted)
	}
	s.logRound(roundLog)

	return syn, nil
}

func (s *Synthesizer) logRound(round reviewagent.RoundLog) {
	if err := s.logger.LogRound(round); err != nil {
		slog.Error("ORCHESTRATOR: Failed to log coordinator round", "error", err)
	}
}

// ParseReview extracts the review from the coordinator's raw output. It uses the first balanced
// JSON object in raw; if there is none, or it does not decode as an object, the fallback review
// is built instead. It never fails.
func ParseReview(raw, mealOut, wellnessOut string) Synthesis {
	if obj, ok := firstObject(raw); ok {
		if fields, ok := decodeReviewFields(obj); ok {
			return Synthesis{Review: fields, Raw: raw}
		}
	}
	return Synthesis{Review: FallbackReview(raw, mealOut, wellnessOut), Raw: raw, Fallback: true}
}

// FallbackReview builds the review used when the coordinator output cannot be parsed.
func FallbackReview(raw, mealOut, wellnessOut string) reviewagent.ReviewFields {
	summary := tools.Truncate(raw, 500)
	meal := tools.Truncate(mealOut, 300)
	wellness := tools.Truncate(wellnessOut, 300)
	score := fallbackScore
	reasoning := fallbackReasoning
	return reviewagent.ReviewFields{
		Summary:          &summary,
		MealAnalysis:     &meal,
		WearableInsights: &wellness,
		Recommendations:  []string{tools.Truncate(raw, 200)},
		WeeklyScore:      &score,
		Reasoning:        &reasoning,
	}
}

// firstObject returns the first balanced {...} span in s, ignoring braces inside JSON strings.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}

		if c == '"' {
			inString = !inString
		} else if !inString {
			switch c {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// decodeReviewFields reads each known field leniently: a field of the wrong type is left absent
// rather than failing the whole review.
func decodeReviewFields(obj string) (reviewagent.ReviewFields, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &m); err != nil || m == nil {
		return reviewagent.ReviewFields{}, false
	}

	var f reviewagent.ReviewFields
	f.Summary = stringField(m, "summary")
	f.MealAnalysis = stringField(m, "mealAnalysis")
	f.WearableInsights = stringField(m, "wearableInsights")
	f.Reasoning = stringField(m, "reasoning")
	f.WeeklyScore = scoreField(m, "weeklyScore")

	if raw, ok := m["recommendations"]; ok {
		var items []any
		if json.Unmarshal(raw, &items) == nil {
			recs := make([]string, 0, len(items))
			for _, item := range items {
				if s, ok := item.(string); ok {
					recs = append(recs, s)
				}
			}
			f.Recommendations = recs
		}
	}
	return f, true
}

func stringField(m map[string]json.RawMessage, key string) *string {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return nil
	}
	return &s
}

func scoreField(m map[string]json.RawMessage, key string) *int {
	raw, ok := m[key]
	if !ok {
		return nil
	}

	var v float64
	if json.Unmarshal(raw, &v) != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		v = parsed
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	score := int(math.Round(math.Max(minScore, math.Min(maxScore, v))))
	return &score
}
