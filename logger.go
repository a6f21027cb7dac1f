package reviewagent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// CoordinationLogger is the interface for agent round logging. Implementations must be safe for
// concurrent use since specialist agents run in parallel.
type CoordinationLogger interface {
	LogRound(round RoundLog) error
}

// NewCoordinationLogFilePath returns a file path based on a cleaned up model name or id to make easier to identify specific logs produced with various models.
func NewCoordinationLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.NewReplacer(":", "_", "/", "_").Replace(strings.ToLower(model)),
	)
}

// RoundLog represents a single model round of one agent
type RoundLog struct {
	Agent     string        `json:"agent"`
	Round     int           `json:"round"`
	Timestamp time.Time     `json:"timestamp"`
	LLMOutput any           `json:"llm_output,omitempty"`
	ToolCalls []ToolCallLog `json:"tool_calls,omitempty"`
	Outcome   string        `json:"outcome,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ToolCallLog represents a tool execution within a round
type ToolCallLog struct {
	Name   string         `json:"name"`
	Input  map[string]any `json:"input"`
	Output string         `json:"output"`
}

// FileCoordinationLogger logs to a writer, accumulating rounds and flushing at the end
type FileCoordinationLogger struct {
	mu     sync.Mutex
	rounds []RoundLog
	writer io.Writer
}

// NewFileCoordinationLogger creates a new file-based coordination logger
func NewFileCoordinationLogger(writer io.Writer) *FileCoordinationLogger {
	return &FileCoordinationLogger{
		rounds: make([]RoundLog, 0),
		writer: writer,
	}
}

// LogRound buffers a round (does not flush immediately)
func (fcl *FileCoordinationLogger) LogRound(round RoundLog) error {
	fcl.mu.Lock()
	defer fcl.mu.Unlock()
	fcl.rounds = append(fcl.rounds, round)
	return nil
}

// Rounds returns a copy of the buffered rounds.
func (fcl *FileCoordinationLogger) Rounds() []RoundLog {
	fcl.mu.Lock()
	defer fcl.mu.Unlock()
	return append([]RoundLog(nil), fcl.rounds...)
}

// Flush flushes all accumulated rounds to the writer
func (fcl *FileCoordinationLogger) Flush() error {
	fcl.mu.Lock()
	defer fcl.mu.Unlock()

	if fcl.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"review_session": map[string]any{
			"timestamp": time.Now(),
			"rounds":    fcl.rounds,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal coordination log: %w", err)
	}

	if _, err := fcl.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write coordination log: %w", err)
	}

	// Clear the buffer after successful write
	fcl.rounds = fcl.rounds[:0]
	return nil
}

// NoOpCoordinationLogger is a logger that discards all log entries
type NoOpCoordinationLogger struct{}

// NewNoOpCoordinationLogger creates a new no-op coordination logger
func NewNoOpCoordinationLogger() *NoOpCoordinationLogger {
	return &NoOpCoordinationLogger{}
}

// LogRound discards the round log (no-op)
func (nop *NoOpCoordinationLogger) LogRound(round RoundLog) error {
	return nil
}

// StdoutCoordinationLogger logs each round as a JSON line (for Lambda/CloudWatch)
type StdoutCoordinationLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdoutCoordinationLogger creates a new stdout-based coordination logger
func NewStdoutCoordinationLogger() *StdoutCoordinationLogger {
	return &StdoutCoordinationLogger{w: os.Stdout}
}

// LogRound writes the round as a single JSON line
func (l *StdoutCoordinationLogger) LogRound(round RoundLog) error {
	data, err := json.Marshal(round)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = fmt.Fprintln(l.w, string(data))
	return err
}
