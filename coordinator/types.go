package coordinator

import (
	"context"
	"strings"

	"menuagent/tools"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// Part types carried in a MessagePart.
const (
	PartText       = "text"
	PartToolUse    = "tool_use"
	PartToolResult = "tool_result"
)

// Stop reasons reported by a reasoning service.
const (
	StopEndTurn   = "end_turn"
	StopToolUse   = "tool_use"
	StopMaxTokens = "max_tokens"
)

// MessagePart is one block of a transcript message. Text parts carry Text;
// tool_use and tool_result parts carry ToolUseID, ToolName and Data.
type MessagePart struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

type MessageParts []MessagePart

// Join concatenates the text parts.
func (mp MessageParts) Join() string {
	var b strings.Builder
	for _, p := range mp {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// HasTools reports whether any part is a tool_use or tool_result block.
func (mp MessageParts) HasTools() bool {
	for _, p := range mp {
		if p.Type == PartToolUse || p.Type == PartToolResult {
			return true
		}
	}
	return false
}

type Message struct {
	Role    string       `json:"role"`
	Content MessageParts `json:"content"`
}

// NewUserMessage wraps text in a single-part user message.
func NewUserMessage(text string) Message {
	return Message{Role: "user", Content: MessageParts{{Type: PartText, Text: text}}}
}

type ToolResult struct {
	ToolUseID string
	ToolName  string
	Data      map[string]any
}

// NewToolResultMessage builds the user message answering one turn's tool
// requests, one tool_result part per request in request order.
func NewToolResultMessage(results []ToolResult) Message {
	parts := make(MessageParts, 0, len(results))
	for _, r := range results {
		parts = append(parts, MessagePart{
			Type:      PartToolResult,
			ToolUseID: r.ToolUseID,
			ToolName:  r.ToolName,
			Data:      r.Data,
		})
	}
	return Message{Role: "user", Content: parts}
}

// ToolSpec is the schema surface of one tool as offered to the service.
type ToolSpec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

// Prompt is everything sent on one turn. An empty Tools slice means the
// service must answer in text. A zero MaxTokens uses the client default.
type Prompt struct {
	System    string     `json:"system"`
	Messages  []Message  `json:"messages"`
	Tools     []ToolSpec `json:"tools,omitempty"`
	MaxTokens int32      `json:"max_tokens,omitempty"`
}

// HasToolHistory reports whether the transcript already contains tool
// exchanges.
func (p Prompt) HasToolHistory() bool {
	for _, m := range p.Messages {
		if m.Content.HasTools() {
			return true
		}
	}
	return false
}

type Response struct {
	Content    string       `json:"content,omitempty"`
	ToolCalls  []tools.Call `json:"tool_calls,omitempty"`
	StopReason string       `json:"stop_reason,omitempty"`
}

// LLM is a reasoning service.
type LLM interface {
	Invoke(ctx context.Context, prompt Prompt) (Response, error)
}

// Dispatcher executes tool requests. *tools.Registry implements it.
type Dispatcher interface {
	GetTools() []tools.Tool
	Dispatch(ctx context.Context, call tools.Call) map[string]any
}

// ToolSpecs converts a dispatcher's tools into the specs offered on each
// turn.
func ToolSpecs(d Dispatcher) []ToolSpec {
	ts := d.GetTools()
	specs := make([]ToolSpec, 0, len(ts))
	for _, t := range ts {
		specs = append(specs, ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return specs
}
