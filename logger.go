package menuagent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// CoordinationLogger receives one record per coordinator turn.
type CoordinationLogger interface {
	LogIteration(iteration IterationLog) error
}

var logNameReplacer = strings.NewReplacer(":", "_", "/", "_", " ", "_")

// NewCoordinationLogFilePath names a session log after the flow and model so
// runs against different models are easy to tell apart.
func NewCoordinationLogFilePath(model, flow string, now time.Time) string {
	name := logNameReplacer.Replace(strings.ToLower(model))
	if flow != "" {
		name = flow + "." + name
	}
	return fmt.Sprintf("./logs/%d.%s.json", now.Unix(), name)
}

// IterationLog is a single turn of a run.
type IterationLog struct {
	Iteration int           `json:"iteration"`
	Flow      string        `json:"flow,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	ToolsSent bool          `json:"tools_sent"`
	LLMInput  string        `json:"llm_input,omitempty"`
	LLMOutput any           `json:"llm_output"`
	ToolCalls []ToolCallLog `json:"tool_calls,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ToolCallLog is one dispatched tool call and the summary shown to callers.
type ToolCallLog struct {
	Name      string         `json:"name"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Input     map[string]any `json:"input"`
	Output    map[string]any `json:"output"`
	Summary   string         `json:"result_summary,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// FileCoordinationLogger buffers a whole session and writes it as one JSON
// document on Flush.
type FileCoordinationLogger struct {
	mu         sync.Mutex
	model      string
	started    time.Time
	iterations []IterationLog
	writer     io.Writer
}

func NewFileCoordinationLogger(writer io.Writer, model string) *FileCoordinationLogger {
	return &FileCoordinationLogger{
		model:      model,
		started:    time.Now().UTC(),
		iterations: make([]IterationLog, 0),
		writer:     writer,
	}
}

func (fcl *FileCoordinationLogger) LogIteration(iteration IterationLog) error {
	fcl.mu.Lock()
	defer fcl.mu.Unlock()
	fcl.iterations = append(fcl.iterations, iteration)
	return nil
}

// Flush writes the buffered session and clears it. A second Flush with
// nothing new buffered writes nothing.
func (fcl *FileCoordinationLogger) Flush() error {
	fcl.mu.Lock()
	defer fcl.mu.Unlock()

	if fcl.writer == nil || len(fcl.iterations) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"coordination_session": map[string]any{
			"model":      fcl.model,
			"started_at": fcl.started,
			"turns":      len(fcl.iterations),
			"iterations": fcl.iterations,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal coordination log: %w", err)
	}

	if _, err := fcl.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write coordination log: %w", err)
	}

	fcl.iterations = fcl.iterations[:0]
	return nil
}

type NoOpCoordinationLogger struct{}

func NewNoOpCoordinationLogger() *NoOpCoordinationLogger {
	return &NoOpCoordinationLogger{}
}

func (nop *NoOpCoordinationLogger) LogIteration(iteration IterationLog) error {
	return nil
}

// StdoutCoordinationLogger writes each turn as a JSON line, which is what
// CloudWatch expects from a Lambda.
type StdoutCoordinationLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStdoutCoordinationLogger() *StdoutCoordinationLogger {
	return &StdoutCoordinationLogger{w: os.Stdout}
}

func (l *StdoutCoordinationLogger) LogIteration(iteration IterationLog) error {
	data, err := json.Marshal(iteration)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = fmt.Fprintln(l.w, string(data))
	return err
}
