// Package ollama implements the reasoning service over a local Ollama
// server's /api/chat endpoint with native tool calling.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"menuagent"
	"menuagent/coordinator"
	"menuagent/tools"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseEndpoint = "http://localhost:11434"

	// 16384 is a safe default; raise it if your machine can handle it.
	defaultNumCtx = 16384
)

type Client struct {
	endpoint   string
	model      string
	httpClient menuagent.HTTPClient
	options    options
	newID      func() string
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   menuagent.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	if strings.TrimSpace(opts.ModelID) == "" {
		return nil, fmt.Errorf("ollama model id is required")
	}
	if opts.BaseEndpoint == "" {
		opts.BaseEndpoint = DefaultBaseEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   0.2,
			TopP:          0.9,
			RepeatPenalty: 1.05,
			NumCtx:        defaultNumCtx,
		},
		newID: func() string { return "call_" + uuid.NewString() },
	}, nil
}

// Invoke sends the prompt to /api/chat. Ollama does not assign ids to tool
// calls, so each call gets a generated one.
func (c *Client) Invoke(ctx context.Context, prompt coordinator.Prompt) (coordinator.Response, error) {
	ctx, span := otel.Tracer(menuagent.TracerNameOllama).Start(ctx, "Client.Invoke")
	defer span.End()

	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages), "tools_len", len(prompt.Tools))

	opts := c.options
	if prompt.MaxTokens > 0 {
		opts.NumPredict = prompt.MaxTokens
	}

	reqBody := chatRequest{
		Model:    c.model,
		Messages: buildMessages(prompt),
		Tools:    buildTools(prompt.Tools),
		Stream:   false,
		Options:  opts,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return coordinator.Response{}, err
	}
	span.SetAttributes(
		attribute.String("model_id", c.model),
		attribute.Int("messages", len(reqBody.Messages)),
		attribute.Int("tools", len(reqBody.Tools)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return coordinator.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, "request failed")
		span.RecordError(err)
		return coordinator.Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return coordinator.Response{}, fmt.Errorf("LLM_CLIENT: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, resp.Status)
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(string(body)), "does not support tools") {
			return coordinator.Response{}, fmt.Errorf("%w: %s: %s", coordinator.ErrToolsUnsupported, c.model, strings.TrimSpace(string(body)))
		}
		return coordinator.Response{}, fmt.Errorf("LLM_CLIENT: %s: %s", resp.Status, string(body))
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		slog.Warn("LLM_CLIENT: decode failed, returning raw", "err", err, "body", string(body))
		return coordinator.Response{Content: string(body), StopReason: coordinator.StopEndTurn}, nil
	}

	if len(cr.Message.ToolCalls) > 0 {
		calls := make([]tools.Call, 0, len(cr.Message.ToolCalls))
		for _, tc := range cr.Message.ToolCalls {
			args := tc.Function.Arguments
			if args == nil {
				args = map[string]any{}
			}
			calls = append(calls, tools.Call{
				Name:      tc.Function.Name,
				Input:     args,
				ToolUseID: c.newID(),
			})
		}
		slog.Info("LLM_CLIENT: Extracted tool calls", "calls_len", len(calls))
		return coordinator.Response{Content: cr.Message.Content, ToolCalls: calls, StopReason: coordinator.StopToolUse}, nil
	}

	stop := coordinator.StopEndTurn
	if cr.DoneReason == "length" {
		slog.Warn("LLM_CLIENT: Model hit the token limit; returning truncated text")
		stop = coordinator.StopMaxTokens
	}
	return coordinator.Response{Content: cr.Message.Content, StopReason: stop}, nil
}

// buildMessages converts the transcript into Ollama chat messages: the
// system prompt first, tool_use parts as assistant tool_calls and each
// tool_result part as its own role=tool message.
func buildMessages(prompt coordinator.Prompt) []Message {
	messages := make([]Message, 0, len(prompt.Messages)+1)

	if sp := strings.TrimSpace(prompt.System); sp != "" {
		messages = append(messages, Message{Role: "system", Content: sp})
	}

	for _, m := range prompt.Messages {
		role := m.Role
		if role != "user" && role != "assistant" {
			slog.Warn("LLM_CLIENT: unknown role, coercing to user", "role", m.Role)
			role = "user"
		}

		var text strings.Builder
		var calls []ToolCall
		var results []Message
		for _, part := range m.Content {
			switch part.Type {
			case coordinator.PartText:
				text.WriteString(part.Text)
			case coordinator.PartToolUse:
				calls = append(calls, ToolCall{Function: FunctionCall{Name: part.ToolName, Arguments: part.Data}})
			case coordinator.PartToolResult:
				if strings.TrimSpace(part.ToolName) == "" {
					slog.Warn("LLM_CLIENT: dropping tool result without name")
					continue
				}
				b, err := json.Marshal(part.Data)
				if err != nil {
					b = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
				}
				results = append(results, Message{Role: "tool", ToolName: part.ToolName, Content: string(b)})
			}
		}

		// Results answer the previous assistant turn, so they come before
		// any text sharing their message.
		messages = append(messages, results...)
		if text.Len() > 0 || len(calls) > 0 {
			messages = append(messages, Message{Role: role, Content: text.String(), ToolCalls: calls})
		}
	}

	return messages
}

func buildTools(specs []coordinator.ToolSpec) []Tool {
	if len(specs) == 0 {
		return nil
	}
	out := make([]Tool, 0, len(specs))
	for _, s := range specs {
		params := map[string]any{"type": "object", "properties": map[string]any{}}
		if s.InputSchema != nil {
			if b, err := json.Marshal(s.InputSchema); err == nil {
				var m map[string]any
				if json.Unmarshal(b, &m) == nil && m != nil {
					params = m
				}
			}
		}
		out = append(out, Tool{
			Type: "function",
			Function: ToolSchema{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
