// Package bedrock implements the reasoning service over the AWS Bedrock
// Converse API.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"menuagent"
	"menuagent/coordinator"
	"menuagent/tools"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithydocument "github.com/aws/smithy-go/document"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// defaultModelID is the default model ID for Bedrock Claude.
	// It's an inference profile ID or ARN, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// Controls the maximum number of tokens the model can generate in one response.
	// Recommendations with a short rationale per item fit comfortably in 2k.
	defaultMaxTokens = 2048

	// Low temperature keeps tool use and item citations consistent between runs.
	defaultTemperature = 0.2

	defaultTopP = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type LLMOptions struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMClient struct {
	brc  bedrockRuntimeClient
	opts LLMOptions
}

func NewLLMClient(brc bedrockRuntimeClient, opts LLMOptions) *LLMClient {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &LLMClient{
		brc:  brc,
		opts: opts,
	}
}

func (c *LLMClient) Invoke(ctx context.Context, prompt coordinator.Prompt) (coordinator.Response, error) {
	ctx, span := otel.Tracer(menuagent.TracerNameBedrock).Start(ctx, "LLMClient.Invoke")
	defer span.End()

	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages), "tools_len", len(prompt.Tools))

	var sys []types.SystemContentBlock
	if strings.TrimSpace(prompt.System) != "" {
		sys = append(sys, &types.SystemContentBlockMemberText{Value: prompt.System})
	}

	// Converse rejects toolUse/toolResult blocks unless a tool config is
	// present, so a tool-less turn replays earlier exchanges as text.
	flatten := len(prompt.Tools) == 0
	msgs := make([]types.Message, 0, len(prompt.Messages))
	for _, m := range prompt.Messages {
		msg := buildMessage(m, flatten)
		if len(msg.Content) == 0 {
			slog.Warn("LLM_CLIENT: Dropping empty message", "role", m.Role)
			continue
		}
		msgs = append(msgs, msg)
	}

	maxTokens := c.opts.MaxTokens
	if prompt.MaxTokens > 0 {
		maxTokens = prompt.MaxTokens
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:  &c.opts.ModelID,
		System:   sys,
		Messages: msgs,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(maxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	}

	if len(prompt.Tools) > 0 {
		var specs []types.Tool
		for _, t := range prompt.Tools {
			spec, err := buildToolSpec(t)
			if err != nil {
				slog.Error("LLM_CLIENT: Failed to build tool spec", "error", err)
				continue
			}
			specs = append(specs, &types.ToolMemberToolSpec{Value: spec})
			slog.Debug("LLM_CLIENT: Registered tool", "name", t.Name)
		}
		in.ToolConfig = &types.ToolConfiguration{Tools: specs, ToolChoice: &types.ToolChoiceMemberAuto{}}
	}

	span.SetAttributes(
		attribute.String("model_id", c.opts.ModelID),
		attribute.Int("messages", len(msgs)),
		attribute.Int("tools", len(prompt.Tools)),
		attribute.Int("max_tokens", int(maxTokens)),
	)

	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("LLM_CLIENT: Bedrock Claude invoke failed", "error", err, "model_id", c.opts.ModelID)
		span.SetStatus(codes.Error, "converse failed")
		span.RecordError(err)
		var ve *types.ValidationException
		if errors.As(err, &ve) && strings.Contains(strings.ToLower(ve.ErrorMessage()), "tool") {
			return coordinator.Response{}, fmt.Errorf("%w: %w", coordinator.ErrToolsUnsupported, err)
		}
		return coordinator.Response{}, err
	}

	var inputTokens, outputTokens int32
	if out.Usage != nil {
		inputTokens, outputTokens = aws.ToInt32(out.Usage.InputTokens), aws.ToInt32(out.Usage.OutputTokens)
	}
	var latency int64
	if out.Metrics != nil {
		latency = aws.ToInt64(out.Metrics.LatencyMs)
	}
	span.SetAttributes(
		attribute.String("stop_reason", string(out.StopReason)),
		attribute.Int("input_tokens", int(inputTokens)),
		attribute.Int("output_tokens", int(outputTokens)),
	)
	slog.Info("LLM_CLIENT: Bedrock Claude invoke succeeded",
		"stop_reason", out.StopReason,
		"latency_ms", latency,
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
	)

	text := textFromOutput(out)
	calls, err := toolCallsFromOutput(out)
	if err != nil {
		return coordinator.Response{}, fmt.Errorf("failed to parse tool calls: %w", err)
	}

	switch out.StopReason {
	case types.StopReasonToolUse:
		slog.Info("LLM_CLIENT: Extracted tool calls", "calls_len", len(calls))
		return coordinator.Response{Content: text, ToolCalls: calls, StopReason: coordinator.StopToolUse}, nil

	case types.StopReasonEndTurn, types.StopReasonStopSequence:
		slog.Info("LLM_CLIENT: Extracted final text", "text_len", len(text))
		return coordinator.Response{Content: text, StopReason: coordinator.StopEndTurn}, nil

	case types.StopReasonMaxTokens:
		slog.Warn("LLM_CLIENT: Model hit MaxTokens limit; returning truncated text", "max_tokens", maxTokens)
		return coordinator.Response{Content: text, ToolCalls: calls, StopReason: coordinator.StopMaxTokens}, nil

	case types.StopReasonContentFiltered, types.StopReasonGuardrailIntervened:
		slog.Warn("LLM_CLIENT: Model response blocked by Bedrock safety filters")
		return coordinator.Response{}, fmt.Errorf("model response blocked by Bedrock safety filters")

	default:
		return coordinator.Response{Content: text, ToolCalls: calls, StopReason: string(out.StopReason)}, nil
	}
}

func buildMessage(m coordinator.Message, flatten bool) types.Message {
	msg := types.Message{Role: types.ConversationRole(m.Role)}

	for _, part := range m.Content {
		switch part.Type {
		case coordinator.PartText:
			if part.Text == "" {
				continue
			}
			msg.Content = append(msg.Content, &types.ContentBlockMemberText{Value: part.Text})

		case coordinator.PartToolUse:
			if flatten {
				msg.Content = append(msg.Content, &types.ContentBlockMemberText{
					Value: fmt.Sprintf("[called %s with %s]", part.ToolName, compactJSON(part.Data)),
				})
				continue
			}
			msg.Content = append(msg.Content, &types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
				ToolUseId: aws.String(part.ToolUseID),
				Name:      aws.String(part.ToolName),
				Input:     document.NewLazyDocument(freshMap(part.Data)),
			}})

		case coordinator.PartToolResult:
			if flatten {
				msg.Content = append(msg.Content, &types.ContentBlockMemberText{
					Value: fmt.Sprintf("[%s result] %s", part.ToolName, compactJSON(part.Data)),
				})
				continue
			}
			status := types.ToolResultStatusSuccess
			if _, failed := part.Data["error"]; failed {
				status = types.ToolResultStatusError
			}
			msg.Content = append(msg.Content, &types.ContentBlockMemberToolResult{Value: types.ToolResultBlock{
				ToolUseId: aws.String(part.ToolUseID),
				Status:    status,
				Content: []types.ToolResultContentBlock{
					&types.ToolResultContentBlockMemberJson{Value: document.NewLazyDocument(freshMap(part.Data))},
				},
			}})
		}
	}
	return msg
}

// freshMap round-trips data through JSON so the lazy document only sees
// plain JSON types.
func freshMap(data map[string]any) map[string]any {
	out := make(map[string]any)
	b, err := json.Marshal(data)
	if err != nil {
		slog.Error("LLM_CLIENT: Failed to copy block data", "error", err)
		return out
	}
	if err := json.Unmarshal(b, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

func compactJSON(data map[string]any) string {
	if data == nil {
		return "{}"
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// buildToolSpec constructs a ToolSpecification for a tool.
func buildToolSpec(t coordinator.ToolSpec) (types.ToolSpecification, error) {
	// The schema goes through JSON first so its custom MarshalJSON applies
	// before the document encoder sees it.
	schemaJSON, err := json.Marshal(t.InputSchema)
	if err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to marshal tool schema for %s: %w", t.Name, err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to unmarshal tool schema for %s: %w", t.Name, err)
	}

	return types.ToolSpecification{
		Name:        aws.String(t.Name),
		Description: aws.String(t.Description),
		InputSchema: &types.ToolInputSchemaMemberJson{
			Value: document.NewLazyDocument(schemaMap),
		},
	}, nil
}

// textFromOutput joins the assistant's text blocks with newlines.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return ""
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}
	return strings.Join(texts, "\n")
}

// toolCallsFromOutput extracts tool uses emitted by the assistant.
func toolCallsFromOutput(out *bedrockruntime.ConverseOutput) ([]tools.Call, error) {
	var calls []tools.Call
	if out == nil {
		return calls, nil
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || msg.Value.Content == nil {
		return calls, nil
	}

	for _, cb := range msg.Value.Content {
		tu, ok := cb.(*types.ContentBlockMemberToolUse)
		if !ok || tu == nil {
			continue
		}

		var input map[string]any
		if tu.Value.Input != nil {
			if err := tu.Value.Input.UnmarshalSmithyDocument(&input); err != nil {
				slog.Warn("LLM_CLIENT: Unreadable tool input", "tool", aws.ToString(tu.Value.Name), "error", err)
			}
		}
		if input == nil {
			input = map[string]any{}
		}

		calls = append(calls, tools.Call{
			Name:      aws.ToString(tu.Value.Name),
			Input:     normalizeInput(input).(map[string]any),
			ToolUseID: aws.ToString(tu.Value.ToolUseId),
		})
	}

	return calls, nil
}

// normalizeInput recursively coerces types for safe downstream use.
func normalizeInput(val any) any {
	switch v := val.(type) {
	case float64:
		// 2.0 -> 2
		if v == float64(int(v)) {
			return int(v)
		}
		return v

	case smithydocument.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return string(v)

	case string:
		// Models sometimes send arrays and objects as JSON strings.
		s := strings.TrimSpace(v)
		if len(s) > 1 && (s[0] == '[' || s[0] == '{') {
			var decoded any
			if json.Unmarshal([]byte(s), &decoded) == nil {
				return normalizeInput(decoded)
			}
		}
		return v

	case []any:
		for i := range v {
			v[i] = normalizeInput(v[i])
		}
		return v

	case map[string]any:
		for key, val := range v {
			v[key] = normalizeInput(val)
		}
		return v

	default:
		return v
	}
}
