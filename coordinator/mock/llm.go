// Package mock is a deterministic reasoning service for running the agent
// without a model. It follows the same tool workflow a well behaved model
// would and is useful for demos and for exercising the coordinator end to
// end. Real models may not be so kind.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"menuagent/coordinator"
	"menuagent/tools"
)

const (
	defaultQuery = "high protein"
	maxPicks     = 3
)

type LLMClient struct {
	query string
	seq   atomic.Int64
}

// NewLLMClient returns a scripted client. query seeds search_menu in the
// advisor workflow; empty means a generic high-protein search.
func NewLLMClient(query string) *LLMClient {
	if strings.TrimSpace(query) == "" {
		query = defaultQuery
	}
	return &LLMClient{query: query}
}

// Invoke picks the next step from the tool results already in the prompt.
// When no tools are offered it always answers in text.
func (m *LLMClient) Invoke(ctx context.Context, prompt coordinator.Prompt) (coordinator.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages), "tools_len", len(prompt.Tools))

	offered := make(map[string]bool, len(prompt.Tools))
	for _, t := range prompt.Tools {
		offered[t.Name] = true
	}
	results := toolResults(prompt.Messages)

	if offered[tools.KindSendRecommendation.String()] {
		return m.plan(offered, results), nil
	}
	return m.advise(offered, results), nil
}

func (m *LLMClient) plan(offered map[string]bool, results map[string]map[string]any) coordinator.Response {
	goals := tools.KindCheckUserGoals.String()
	menu := tools.KindGetMenu.String()
	send := tools.KindSendRecommendation.String()

	if _, ok := results[send]; ok {
		return text("Enjoy your meal!")
	}

	menuResult, haveMenu := results[menu]
	if !haveMenu {
		var calls []tools.Call
		if _, ok := results[goals]; !ok && offered[goals] {
			calls = append(calls, m.call(goals, map[string]any{}))
		}
		if offered[menu] {
			calls = append(calls, m.call(menu, map[string]any{"meal_type": "current"}))
		}
		if len(calls) > 0 {
			slog.Info("LLM_CLIENT: Returning plan for goals and menu")
			return toolUse("Let me check your goals and today's menu.", calls)
		}
	}

	picks := picksFromMenu(menuResult)
	if len(picks) == 0 {
		return text("Nothing on today's menu matches your restrictions.")
	}

	meal, _ := menuResult["meal"].(string)
	slog.Info("LLM_CLIENT: Returning recommendation", "picks", len(picks))
	return toolUse("", []tools.Call{m.call(send, map[string]any{
		"meal_type":       meal,
		"recommendations": picks,
		"summary":         fmt.Sprintf("The %d highest protein options that fit your restrictions.", len(picks)),
	})})
}

func (m *LLMClient) advise(offered map[string]bool, results map[string]map[string]any) coordinator.Response {
	search := tools.KindSearchMenu.String()
	rank := tools.KindRankDiningHalls.String()

	found, searched := results[search]
	if !searched && offered[search] {
		calls := []tools.Call{m.call(search, map[string]any{"query": m.query, "top_k": 5})}
		if offered[rank] {
			calls = append(calls, m.call(rank, map[string]any{"top_n": 3}))
		}
		slog.Info("LLM_CLIENT: Returning plan for search")
		return toolUse("Searching today's menu.", calls)
	}

	var b strings.Builder
	if s, ok := found["text"].(string); ok && s != "" {
		b.WriteString(s)
	} else {
		b.WriteString("I could not search the menu this time.")
	}
	if ranked, ok := results[rank]["halls"].([]any); ok && len(ranked) > 0 {
		if top, ok := ranked[0].(map[string]any); ok {
			fmt.Fprintf(&b, "\n\nBest hall for you today: %v.", top["hall"])
		}
	}
	return text(b.String())
}

func (m *LLMClient) call(name string, input map[string]any) tools.Call {
	return tools.Call{
		Name:      name,
		Input:     input,
		ToolUseID: fmt.Sprintf("mock_%d", m.seq.Add(1)),
	}
}

// toolResults indexes the latest result of each tool by name.
func toolResults(msgs []coordinator.Message) map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, msg := range msgs {
		for _, part := range msg.Content {
			if part.Type == coordinator.PartToolResult && part.ToolName != "" {
				out[part.ToolName] = part.Data
			}
		}
	}
	return out
}

// picksFromMenu takes the first items of a get_menu result, which are
// already sorted by protein.
func picksFromMenu(result map[string]any) []any {
	items, _ := result["items"].([]any)
	picks := make([]any, 0, maxPicks)
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := item["name"].(string)
		if name == "" {
			continue
		}
		pick := map[string]any{
			"name":        name,
			"dining_hall": item["dining_hall"],
			"station":     item["station"],
			"reason":      "High in protein and fits your restrictions.",
		}
		if v, ok := item["calories"].(float64); ok {
			pick["calories"] = v
		}
		if v, ok := item["protein_g"].(float64); ok {
			pick["protein_g"] = v
		}
		picks = append(picks, pick)
		if len(picks) == maxPicks {
			break
		}
	}
	return picks
}

func text(s string) coordinator.Response {
	return coordinator.Response{Content: s, StopReason: coordinator.StopEndTurn}
}

func toolUse(s string, calls []tools.Call) coordinator.Response {
	return coordinator.Response{Content: s, ToolCalls: calls, StopReason: coordinator.StopToolUse}
}
