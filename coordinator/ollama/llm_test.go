package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuagent/coordinator"
	"menuagent/tools"
)

// mockHTTPClient implements the HTTPClient interface for testing
type mockHTTPClient struct {
	response *http.Response
	err      error
	request  chatRequest
	url      string
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.url = req.URL.String()
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(b, &m.request)
	}
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

func newTestClient(t *testing.T, hc *mockHTTPClient) *Client {
	t.Helper()
	c, err := NewClient(ClientOpts{BaseEndpoint: "http://localhost:11434/", ModelID: "llama3.2", HTTPClient: hc})
	require.NoError(t, err)
	n := 0
	c.newID = func() string {
		n++
		return "call_" + string(rune('0'+n))
	}
	return c
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(ClientOpts{ModelID: "qwen3"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/api/chat", c.endpoint)
	assert.Equal(t, "qwen3", c.model)
	assert.Equal(t, defaultNumCtx, c.options.NumCtx)
	assert.NotNil(t, c.httpClient)
	assert.True(t, strings.HasPrefix(c.newID(), "call_"))
	assert.NotEqual(t, c.newID(), c.newID())

	_, err = NewClient(ClientOpts{BaseEndpoint: "http://localhost:11434"})
	assert.Error(t, err)
}

func TestClient_Invoke(t *testing.T) {
	userPrompt := coordinator.Prompt{
		System:   "You are a dining advisor.",
		Messages: []coordinator.Message{coordinator.NewUserMessage("What's for lunch?")},
	}

	tests := []struct {
		name        string
		response    *http.Response
		err         error
		prompt      coordinator.Prompt
		expected    coordinator.Response
		errContains string
		unsupported bool
	}{
		{
			name:     "text response",
			response: createMockResponse(200, `{"message":{"role":"assistant","content":"Try the soup."},"done_reason":"stop"}`),
			prompt:   userPrompt,
			expected: coordinator.Response{Content: "Try the soup.", StopReason: coordinator.StopEndTurn},
		},
		{
			name: "tool calls get generated ids",
			response: createMockResponse(200, `{
				"message": {
					"role": "assistant",
					"content": "Searching.",
					"tool_calls": [
						{"function": {"name": "search_menu", "arguments": {"query": "chicken", "top_k": 5}}},
						{"function": {"name": "rank_dining_halls"}}
					]
				}
			}`),
			prompt: userPrompt,
			expected: coordinator.Response{
				Content:    "Searching.",
				StopReason: coordinator.StopToolUse,
				ToolCalls: []tools.Call{
					{Name: "search_menu", Input: map[string]any{"query": "chicken", "top_k": float64(5)}, ToolUseID: "call_1"},
					{Name: "rank_dining_halls", Input: map[string]any{}, ToolUseID: "call_2"},
				},
			},
		},
		{
			name:     "length limit",
			response: createMockResponse(200, `{"message":{"role":"assistant","content":"Try the"},"done_reason":"length"}`),
			prompt:   userPrompt,
			expected: coordinator.Response{Content: "Try the", StopReason: coordinator.StopMaxTokens},
		},
		{
			name:        "model without tool support",
			response:    createMockResponse(400, `{"error":"registry.ollama.ai/library/gemma:2b does not support tools"}`),
			prompt:      userPrompt,
			errContains: "does not support tools",
			unsupported: true,
		},
		{
			name:        "HTTP error",
			response:    createMockResponse(500, `{"error": "Internal server error"}`),
			prompt:      userPrompt,
			errContains: "LLM_CLIENT:",
		},
		{
			name:        "network error",
			err:         io.EOF,
			prompt:      userPrompt,
			errContains: "EOF",
		},
		{
			name:     "malformed JSON response",
			response: createMockResponse(200, `{"message": {"role": "assistant"`),
			prompt:   userPrompt,
			expected: coordinator.Response{Content: `{"message": {"role": "assistant"`, StopReason: coordinator.StopEndTurn},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := &mockHTTPClient{response: tt.response, err: tt.err}
			client := newTestClient(t, hc)

			result, err := client.Invoke(context.Background(), tt.prompt)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Equal(t, tt.unsupported, errors.Is(err, coordinator.ErrToolsUnsupported))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
			assert.Equal(t, "http://localhost:11434/api/chat", hc.url)
			assert.Equal(t, "llama3.2", hc.request.Model)
			assert.False(t, hc.request.Stream)
		})
	}
}

func TestClient_Invoke_Request(t *testing.T) {
	hc := &mockHTTPClient{response: createMockResponse(200, `{"message":{"role":"assistant","content":"ok"}}`)}
	client := newTestClient(t, hc)

	prompt := coordinator.Prompt{
		System: "sys",
		Messages: []coordinator.Message{
			coordinator.NewUserMessage("hi"),
			{Role: "assistant", Content: coordinator.MessageParts{
				{Type: coordinator.PartText, Text: "Looking."},
				{Type: coordinator.PartToolUse, ToolUseID: "call_1", ToolName: "search_menu", Data: map[string]any{"query": "tofu"}},
			}},
			{Role: "user", Content: coordinator.MessageParts{
				{Type: coordinator.PartToolResult, ToolUseID: "call_1", ToolName: "search_menu", Data: map[string]any{"text": "- Tofu"}},
				{Type: coordinator.PartToolResult, ToolUseID: "call_x", Data: map[string]any{"text": "nameless"}},
				{Type: coordinator.PartText, Text: "Answer now."},
			}},
		},
		Tools: []coordinator.ToolSpec{{
			Name:        "search_menu",
			Description: "Search",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{"query": {Type: "string"}},
				Required:   []string{"query"},
			},
		}},
		MaxTokens: 256,
	}

	_, err := client.Invoke(context.Background(), prompt)
	require.NoError(t, err)

	msgs := hc.request.Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, Message{Role: "system", Content: "sys"}, msgs[0])
	assert.Equal(t, Message{Role: "user", Content: "hi"}, msgs[1])
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "Looking.", msgs[2].Content)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, "search_menu", msgs[2].ToolCalls[0].Function.Name)
	assert.Equal(t, Message{Role: "tool", ToolName: "search_menu", Content: `{"text":"- Tofu"}`}, msgs[3])
	assert.Equal(t, Message{Role: "user", Content: "Answer now."}, msgs[4])

	require.Len(t, hc.request.Tools, 1)
	fn := hc.request.Tools[0].Function
	assert.Equal(t, "function", hc.request.Tools[0].Type)
	assert.Equal(t, "search_menu", fn.Name)
	assert.Equal(t, "object", fn.Parameters["type"])
	assert.Equal(t, []any{"query"}, fn.Parameters["required"])
	assert.Equal(t, int32(256), hc.request.Options.NumPredict)
}

func TestBuildTools_Empty(t *testing.T) {
	assert.Nil(t, buildTools(nil))
}
