package menuagent

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoordinationLogFilePath(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		model, flow, want string
	}{
		{"llama3.2:3b", "advisor", "./logs/1792324800.advisor.llama3.2_3b.json"},
		{"us.anthropic.claude-3-5-haiku", "", "./logs/1792324800.us.anthropic.claude-3-5-haiku.json"},
		{"Org/Model Name", "planner", "./logs/1792324800.planner.org_model_name.json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewCoordinationLogFilePath(tt.model, tt.flow, now))
	}
}

func TestFileCoordinationLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewFileCoordinationLogger(&buf, "llama3.2")

	require.NoError(t, l.Flush())
	assert.Zero(t, buf.Len(), "nothing buffered, nothing written")

	require.NoError(t, l.LogIteration(IterationLog{Iteration: 1, Flow: "advisor", ToolsSent: true}))
	require.NoError(t, l.LogIteration(IterationLog{
		Iteration: 2,
		Flow:      "advisor",
		ToolCalls: []ToolCallLog{{Name: "search_menu", Summary: "3 results"}},
	}))
	require.NoError(t, l.Flush())

	var doc struct {
		Session struct {
			Model      string         `json:"model"`
			Turns      int            `json:"turns"`
			Iterations []IterationLog `json:"iterations"`
		} `json:"coordination_session"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "llama3.2", doc.Session.Model)
	assert.Equal(t, 2, doc.Session.Turns)
	require.Len(t, doc.Session.Iterations, 2)
	assert.Equal(t, "3 results", doc.Session.Iterations[1].ToolCalls[0].Summary)

	written := buf.Len()
	require.NoError(t, l.Flush())
	assert.Equal(t, written, buf.Len(), "buffer is cleared after a flush")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestFileCoordinationLogger_WriteError(t *testing.T) {
	l := NewFileCoordinationLogger(failingWriter{}, "m")
	require.NoError(t, l.LogIteration(IterationLog{Iteration: 1}))

	err := l.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestStdoutCoordinationLogger(t *testing.T) {
	var buf bytes.Buffer
	l := &StdoutCoordinationLogger{w: &buf}

	require.NoError(t, l.LogIteration(IterationLog{Iteration: 1, Flow: "planner", Error: "boom"}))
	require.NoError(t, l.LogIteration(IterationLog{Iteration: 2, Flow: "planner"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first IterationLog
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, 1, first.Iteration)
	assert.Equal(t, "planner", first.Flow)
	assert.Equal(t, "boom", first.Error)
}

func TestNoOpCoordinationLogger(t *testing.T) {
	assert.NoError(t, NewNoOpCoordinationLogger().LogIteration(IterationLog{}))
}
