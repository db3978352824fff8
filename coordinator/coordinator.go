// Package coordinator runs the bounded conversation between a reasoning
// service and the menu tools.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"menuagent"
	"menuagent/tools"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// closingMaxTokens bounds the extra exchange that follows send_recommendation.
const closingMaxTokens = 256

// Coordinator drives runs against one reasoning service. It holds no
// per-run state and may be shared.
type Coordinator struct {
	llm    LLM
	logger menuagent.CoordinationLogger
	tracer trace.Tracer
	meter  metric.Meter
	now    func() time.Time
	inst   *instruments
}

type Option func(*Coordinator)

func WithTracer(t trace.Tracer) Option { return func(c *Coordinator) { c.tracer = t } }

func WithMeter(m metric.Meter) Option { return func(c *Coordinator) { c.meter = m } }

func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

// NewCoordinator creates a coordinator. Tracing and metrics default to the
// global otel providers; a nil logger discards iteration logs.
func NewCoordinator(llm LLM, logger menuagent.CoordinationLogger, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		llm:    llm,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = menuagent.NewNoOpCoordinationLogger()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(menuagent.TracerNameCoordinator)
	}
	if c.meter == nil {
		c.meter = otel.Meter(menuagent.TracerNameCoordinator)
	}

	inst, err := newInstruments(c.meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator instruments: %w", err)
	}
	c.inst = inst
	return c, nil
}

// run is the mutable state of one Run call.
type run struct {
	req      Request
	attrs    metric.MeasurementOption
	prompt   Prompt
	specs    []ToolSpec
	textOnly bool
	text     string
	rec      *menuagent.Recommendation
	toolLog  []menuagent.ToolCallLog
}

// Run executes req to completion. Budget exhaustion is not an error; a
// failed turn returns a *RunError.
func (c *Coordinator) Run(ctx context.Context, req Request) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.Run", trace.WithAttributes(
		attribute.String("flow", req.Flow.Name),
		attribute.Int("max_turns", req.turns()),
		attribute.String("meal", req.Meal),
	))
	defer span.End()

	start := time.Now()
	now := c.now()
	turns := req.turns()

	r := &run{
		req:   req,
		attrs: metric.WithAttributes(attribute.String("flow", req.Flow.Name)),
		prompt: Prompt{
			System:   SystemPrompt(req.Flow, req.Profile, req.Meal, now),
			Messages: []Message{NewUserMessage(UserMessage(req.Flow, req.Profile, req.Meal, req.Message))},
		},
	}
	if req.Tools != nil {
		r.specs = ToolSpecs(req.Tools)
	}

	c.inst.runs.Add(ctx, 1, r.attrs)
	slog.Info("COORDINATOR: Starting run", "flow", req.Flow.Name, "meal", req.Meal, "max_turns", turns, "tools", len(r.specs))

	state := StateMaxTurnsExhausted
	used := 0
	for turn := 1; turn <= turns; turn++ {
		used = turn
		done, err := c.turn(ctx, r, turn, turns)
		if err != nil {
			c.inst.runsFailed.Add(ctx, 1, r.attrs)
			span.SetStatus(codes.Error, "turn failed")
			span.RecordError(err)
			slog.Error("COORDINATOR: Run failed", "flow", req.Flow.Name, "turn", turn, "error", err)
			return Result{}, &RunError{Turn: turn, Err: err, ToolLog: r.toolLog}
		}
		if done {
			state = StateDone
			break
		}
	}

	if state == StateMaxTurnsExhausted {
		c.inst.runsExhausted.Add(ctx, 1, r.attrs)
		slog.Warn("COORDINATOR: Turn budget exhausted", "flow", req.Flow.Name, "turns", turns)
	}

	res := Result{
		Flow:           req.Flow.Name,
		Meal:           req.Meal,
		Date:           req.Date,
		Text:           r.text,
		Recommendation: r.rec,
		ToolLog:        r.toolLog,
		Turns:          used,
		State:          state,
		TextOnly:       r.textOnly,
	}
	if res.Date == "" {
		res.Date = now.Format(time.DateOnly)
	}
	if res.ToolLog == nil {
		res.ToolLog = []menuagent.ToolCallLog{}
	}
	if strings.TrimSpace(res.Text) == "" && res.Recommendation == nil {
		res.Text = NoResponseMarker
	}
	res.Summary = res.Text
	if res.Recommendation != nil && res.Recommendation.Summary != "" {
		res.Summary = res.Recommendation.Summary
	}

	c.inst.runsCompleted.Add(ctx, 1, r.attrs)
	c.inst.runDuration.Record(ctx, time.Since(start).Seconds(), r.attrs)
	span.SetAttributes(
		attribute.String("state", state.String()),
		attribute.Int("turns", used),
		attribute.Int("tool_calls", len(r.toolLog)),
	)
	slog.Info("COORDINATOR: Run complete", "flow", req.Flow.Name, "state", state, "turns", used, "tool_calls", len(r.toolLog))
	return res, nil
}

// turn performs one round trip and reports whether the run is finished.
func (c *Coordinator) turn(ctx context.Context, r *run, turn, turns int) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.Turn", trace.WithAttributes(attribute.Int("turn", turn)))
	defer span.End()

	c.inst.turns.Add(ctx, 1, r.attrs)

	// The last turn goes out without tools so the service has to answer.
	r.prompt.Tools = nil
	if turn < turns && !r.textOnly {
		r.prompt.Tools = r.specs
	}

	iterLog := menuagent.IterationLog{
		Iteration: turn,
		Flow:      r.req.Flow.Name,
		Timestamp: c.now(),
		ToolsSent: len(r.prompt.Tools) > 0,
	}

	res, err := c.invoke(ctx, r, turn, r.prompt)
	if err != nil && len(r.prompt.Tools) > 0 && toolsUnsupported(err) {
		slog.Warn("COORDINATOR: Tool use rejected, retrying without tools", "turn", turn, "error", err)
		span.AddEvent("tools unsupported")
		c.inst.textOnly.Add(ctx, 1, r.attrs)
		r.textOnly = true
		r.prompt.Tools = nil
		iterLog.ToolsSent = false
		res, err = c.invoke(ctx, r, turn, r.prompt)
	}
	if err != nil {
		iterLog.Error = err.Error()
		c.logIteration(iterLog)
		span.SetStatus(codes.Error, "invoke failed")
		span.RecordError(err)
		return false, err
	}
	iterLog.LLMOutput = res

	if strings.TrimSpace(res.Content) != "" {
		r.text = res.Content
	}

	if res.StopReason == StopEndTurn || len(res.ToolCalls) == 0 {
		slog.Info("COORDINATOR: Final text produced", "turn", turn, "content_length", len(res.Content), "stop_reason", res.StopReason)
		c.logIteration(iterLog)
		return true, nil
	}

	assistant := Message{Role: "assistant"}
	if res.Content != "" {
		assistant.Content = append(assistant.Content, MessagePart{Type: PartText, Text: res.Content})
	}
	for _, call := range res.ToolCalls {
		assistant.Content = append(assistant.Content, MessagePart{
			Type:      PartToolUse,
			ToolUseID: call.ToolUseID,
			ToolName:  call.Name,
			Data:      call.Input,
		})
	}
	r.prompt.Messages = append(r.prompt.Messages, assistant)

	results := make([]ToolResult, 0, len(res.ToolCalls))
	calls := make([]menuagent.ToolCallLog, 0, len(res.ToolCalls))
	for _, call := range res.ToolCalls {
		out := c.dispatch(ctx, r, call)
		results = append(results, ToolResult{ToolUseID: call.ToolUseID, ToolName: call.Name, Data: out})

		kind := tools.ParseKind(call.Name)
		entry := menuagent.ToolCallLog{
			Name:      call.Name,
			ToolUseID: call.ToolUseID,
			Input:     call.Input,
			Output:    out,
			Summary:   tools.Summarize(kind, call.Input, out),
		}
		if msg, ok := out["error"].(string); ok {
			entry.Error = msg
		} else if kind == tools.KindSendRecommendation {
			if rec, err := tools.DecodeRecommendation(call.Input); err == nil {
				r.rec = &rec
			}
		}
		calls = append(calls, entry)
	}
	r.toolLog = append(r.toolLog, calls...)
	iterLog.ToolCalls = calls

	msg := NewToolResultMessage(results)
	if turn == turns-1 {
		msg.Content = append(msg.Content, MessagePart{Type: PartText, Text: finalTurnNudge})
		slog.Info("COORDINATOR: Nudging for final answer", "turn", turn)
	}
	r.prompt.Messages = append(r.prompt.Messages, msg)
	c.logIteration(iterLog)

	if r.rec != nil {
		c.closing(ctx, r, turn)
		return true, nil
	}
	return false, nil
}

// closing asks for a short natural-language sign-off after the structured
// answer was delivered. Failures are ignored.
func (c *Coordinator) closing(ctx context.Context, r *run, turn int) {
	p := r.prompt
	p.MaxTokens = closingMaxTokens
	p.Tools = nil
	if !r.textOnly {
		p.Tools = r.specs
	}

	res, err := c.invoke(ctx, r, turn, p)
	if err != nil {
		slog.Warn("COORDINATOR: Closing exchange failed", "error", err)
		return
	}
	if text := strings.TrimSpace(res.Content); text != "" {
		r.text = text
	}
}

func (c *Coordinator) invoke(ctx context.Context, r *run, turn int, p Prompt) (Response, error) {
	if b, err := json.Marshal(p); err == nil {
		c.inst.promptSize.Record(ctx, int64(len(b)), r.attrs)
		slog.Info("COORDINATOR: Sending prompt to LLM",
			"turn", turn,
			"messages_count", len(p.Messages),
			"tools_count", len(p.Tools),
			"prompt_size_bytes", len(b),
			"last_message_preview", lastMessagePreview(p.Messages),
		)
	}

	start := time.Now()
	res, err := c.llm.Invoke(ctx, p)
	c.inst.llmLatency.Record(ctx, time.Since(start).Seconds(), r.attrs)
	if err != nil {
		return Response{}, err
	}

	slog.Info("COORDINATOR: LLM response received",
		"turn", turn,
		"content_length", len(res.Content),
		"tool_calls", len(res.ToolCalls),
		"stop_reason", res.StopReason,
	)
	return res, nil
}

func (c *Coordinator) dispatch(ctx context.Context, r *run, call tools.Call) map[string]any {
	ctx, span := c.tracer.Start(ctx, "Coordinator.Tool", trace.WithAttributes(
		attribute.String("tool", call.Name),
		attribute.String("tool_use_id", call.ToolUseID),
	))
	defer span.End()

	slog.Info("COORDINATOR: Handling tool call", "name", call.Name, "tool_use_id", call.ToolUseID)

	attrs := metric.WithAttributes(attribute.String("flow", r.req.Flow.Name), attribute.String("tool", call.Name))
	c.inst.toolCalls.Add(ctx, 1, attrs)

	var out map[string]any
	start := time.Now()
	if r.req.Tools == nil {
		out = map[string]any{"error": "Unknown tool: " + call.Name}
	} else {
		out = r.req.Tools.Dispatch(ctx, call)
	}
	c.inst.toolLatency.Record(ctx, time.Since(start).Seconds(), attrs)

	if msg, ok := out["error"].(string); ok {
		c.inst.toolCallsFailed.Add(ctx, 1, attrs)
		span.SetStatus(codes.Error, msg)
	}
	return out
}

func (c *Coordinator) logIteration(iter menuagent.IterationLog) {
	if err := c.logger.LogIteration(iter); err != nil {
		slog.Error("COORDINATOR: Failed to log coordination iteration", "error", err, "iteration", iter.Iteration)
	}
}

func lastMessagePreview(msgs []Message) string {
	if len(msgs) == 0 {
		return "no content"
	}
	text := msgs[len(msgs)-1].Content.Join()
	if text == "" {
		return "no content"
	}
	if r := []rune(text); len(r) > 100 {
		text = string(r[:97]) + "..."
	}
	return text
}
