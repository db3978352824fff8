package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuagent"
)

func TestParseKind(t *testing.T) {
	for _, k := range AllKinds() {
		assert.Equal(t, k, ParseKind(k.String()))
	}
	assert.Equal(t, KindUnknown, ParseKind("delete_everything"))
	assert.Equal(t, KindUnknown, ParseKind(""))
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(testEnv(menuagent.Profile{}))

	all := registry.GetTools()
	require.Len(t, all, len(AllKinds()))
	for i, k := range AllKinds() {
		assert.Equal(t, k.String(), all[i].Name())
		assert.NotEmpty(t, all[i].Description())
		assert.Equal(t, "object", all[i].InputSchema().Type)
		assert.NotNil(t, all[i].OutputSchema())
	}

	sub := registry.Subset(KindGetMenu, KindCheckUserGoals, KindGetMenu, KindUnknown)
	var names []string
	for _, tool := range sub.GetTools() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"get_menu", "check_user_goals"}, names)

	_, err := sub.GetTool("search_menu")
	assert.Error(t, err)
	tool, err := sub.GetTool("get_menu")
	require.NoError(t, err)
	assert.Equal(t, "get_menu", tool.Name())

	assert.Empty(t, sub.Subset(KindSearchMenu).GetTools(), "subset cannot re-enable tools")
}

func TestRegistry_Dispatch(t *testing.T) {
	registry := NewRegistry(testEnv(menuagent.Profile{})).Subset(KindSearchMenu, KindSendRecommendation)
	ctx := context.Background()

	tests := []struct {
		name     string
		call     Call
		expected map[string]any
	}{
		{
			name:     "unknown tool",
			call:     Call{Name: "launch_rockets"},
			expected: map[string]any{"error": "Unknown tool: launch_rockets"},
		},
		{
			name:     "tool outside the subset",
			call:     Call{Name: "get_menu", Input: map[string]any{"meal_type": "current"}},
			expected: map[string]any{"error": "Unknown tool: get_menu"},
		},
		{
			name:     "tool failure becomes error result",
			call:     Call{Name: "search_menu", Input: map[string]any{"query": "tofu", "dining_hall": "Commons"}},
			expected: map[string]any{"error": `unknown dining hall "Commons"`},
		},
		{
			name:     "empty query is an empty result",
			call:     Call{Name: "search_menu", Input: map[string]any{"query": "  "}},
			expected: map[string]any{"text": "No results found for ''", "count": 0},
		},
		{
			name: "success",
			call: Call{Name: "send_recommendation", Input: map[string]any{
				"meal_type": "lunch", "recommendations": []any{}, "summary": "Nothing fits today.",
			}},
			expected: map[string]any{"status": "delivered"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, registry.Dispatch(ctx, tt.call))
		})
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		input  map[string]any
		output map[string]any
		want   string
	}{
		{
			name:   "error",
			kind:   KindSearchMenu,
			output: map[string]any{"error": "restriction is required"},
			want:   "error: restriction is required",
		},
		{
			name:   "search",
			kind:   KindSearchMenu,
			input:  map[string]any{"query": "tofu"},
			output: map[string]any{"text": "...", "count": 3},
			want:   "3 result(s) for 'tofu'",
		},
		{
			name:   "goals without restrictions",
			kind:   KindCheckUserGoals,
			output: map[string]any{"restrictions": []any{}, "calorie_goal": 2000, "protein_goal": 50},
			want:   "restrictions: none  |  2000 kcal goal  |  50g protein goal",
		},
		{
			name:   "menu",
			kind:   KindGetMenu,
			output: map[string]any{"total_items": 12.0, "halls": []any{"A", "B"}},
			want:   "12 matching items across 2 dining halls",
		},
		{
			name: "nutrition",
			kind: KindGetNutrition,
			output: map[string]any{"nutrition_data": []any{
				map[string]any{"name": "a"}, map[string]any{"name": "b"}, map[string]any{"name": "c"},
				map[string]any{"name": "d"}, map[string]any{"name": "e"},
			}},
			want: "Retrieved: a, b, c, d",
		},
		{
			name:   "nutrition empty",
			kind:   KindGetNutrition,
			output: map[string]any{"nutrition_data": []any{}},
			want:   "No matching items found",
		},
		{
			name:   "recommendation",
			kind:   KindSendRecommendation,
			input:  map[string]any{"recommendations": []any{map[string]any{}, map[string]any{}}},
			output: map[string]any{"status": "delivered"},
			want:   "2 recommendation(s) packaged",
		},
		{
			name:   "halls",
			kind:   KindRankDiningHalls,
			output: map[string]any{"halls": []any{map[string]any{"hall": "North"}, map[string]any{"hall": "South"}}},
			want:   "ranked: North, South",
		},
		{
			name: "unknown",
			kind: KindUnknown,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.kind, tt.input, tt.output))
		})
	}
}
