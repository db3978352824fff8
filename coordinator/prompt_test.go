package coordinator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuagent"
)

func TestEnergyContext(t *testing.T) {
	entry := func(meal, level string) menuagent.EnergyEntry {
		return menuagent.EnergyEntry{Meal: meal, Time: "12:00", Level: level}
	}

	tests := []struct {
		name       string
		history    []menuagent.EnergyEntry
		wantEmpty  bool
		wantLines  int
		wantWarned bool
	}{
		{name: "no history", wantEmpty: true},
		{name: "one low", history: []menuagent.EnergyEntry{entry("breakfast", "low")}, wantLines: 1},
		{name: "two lows", history: []menuagent.EnergyEntry{entry("breakfast", "low"), entry("lunch", "LOW")}, wantLines: 2, wantWarned: true},
		{
			name: "window keeps the last six",
			history: []menuagent.EnergyEntry{
				entry("a", "high"), entry("b", "high"), entry("c", "ok"), entry("d", "ok"),
				entry("e", "ok"), entry("f", "ok"), entry("g", "ok"), entry("h", "ok"),
			},
			wantLines: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnergyContext(tt.history)
			if tt.wantEmpty {
				assert.Empty(t, got)
				return
			}
			assert.True(t, strings.HasPrefix(got, "User energy log today:\n"))
			assert.Equal(t, tt.wantLines, strings.Count(got, " energy\n"))
			assert.Equal(t, tt.wantWarned, strings.Contains(got, "Strongly prioritise high-protein, complex-carb options."))
		})
	}

	windowed := EnergyContext(tests[3].history)
	assert.NotContains(t, windowed, "  - a (")
	assert.Contains(t, windowed, "  - h (12:00): ok energy")
	assert.Contains(t, EnergyContext([]menuagent.EnergyEntry{{}}), "  - ? (?): ? energy")
}

func TestSystemPrompt(t *testing.T) {
	profile := menuagent.Profile{Energy: []menuagent.EnergyEntry{{Meal: "breakfast", Level: "low"}, {Meal: "lunch", Level: "low"}}}

	assert.Equal(t, advisorSystemPrompt, SystemPrompt(FlowAdvisor, profile, "dinner", fixedNow))

	planner := SystemPrompt(FlowPlanner, profile, "dinner", fixedNow)
	assert.Contains(t, planner, "TOOL WORKFLOW")
	assert.Contains(t, planner, "Today: Sunday, October 18, 2026 | Current meal: dinner")
	assert.Contains(t, planner, "User has reported low energy multiple times.")
	assert.NotContains(t, planner, "%!")
}

func TestUserMessage(t *testing.T) {
	profile := menuagent.Profile{Goal: "cut", Restrictions: []string{"vegan", "nut-free"}}

	advisor := UserMessage(FlowAdvisor, profile, "lunch", "")
	assert.Contains(t, advisor, "Restrictions: vegan, nut-free")
	assert.Contains(t, advisor, "Allergies:    none")
	assert.Contains(t, advisor, "Preferences:  no specific preference")
	assert.Contains(t, advisor, "Today's meal is lunch.")

	custom := UserMessage(FlowAdvisor, profile, "lunch", "Something spicy?")
	assert.True(t, strings.HasSuffix(custom, "\n\nSomething spicy?"))

	assert.Equal(t, "It's dinner time. Analyse today's menu and give me your top recommendations.", UserMessage(FlowPlanner, profile, "dinner", ""))
	assert.Equal(t, "Anything light?", UserMessage(FlowPlanner, profile, "dinner", "Anything light?"))

	assert.Contains(t, ProfileBlock(menuagent.Profile{}), "Goal:         balanced meal")
	assert.Contains(t, ProfileBlock(menuagent.Profile{}), "Restrictions: none")
}

func TestParseFlow(t *testing.T) {
	f, err := ParseFlow("Planner")
	require.NoError(t, err)
	assert.Equal(t, FlowPlanner.Name, f.Name)
	assert.Equal(t, 10, f.MaxTurns)

	f, err = ParseFlow("")
	require.NoError(t, err)
	assert.Equal(t, FlowAdvisor.Name, f.Name)
	assert.Equal(t, 6, f.MaxTurns)

	_, err = ParseFlow("debate")
	assert.Error(t, err)
}

func TestMessageParts(t *testing.T) {
	msg := NewToolResultMessage([]ToolResult{
		{ToolUseID: "a", ToolName: "search_menu", Data: map[string]any{"text": "x"}},
		{ToolUseID: "b", ToolName: "get_menu", Data: map[string]any{"error": "boom"}},
	})
	assert.Equal(t, "user", msg.Role)
	require.Len(t, msg.Content, 2)
	assert.Equal(t, "b", msg.Content[1].ToolUseID)
	assert.True(t, msg.Content.HasTools())
	assert.Empty(t, msg.Content.Join())

	parts := MessageParts{{Type: PartText, Text: "a"}, {Type: PartToolUse}, {Type: PartText, Text: "b"}}
	assert.Equal(t, "ab", parts.Join())
	assert.False(t, NewUserMessage("hi").Content.HasTools())

	p := Prompt{Messages: []Message{NewUserMessage("hi")}}
	assert.False(t, p.HasToolHistory())
	p.Messages = append(p.Messages, msg)
	assert.True(t, p.HasToolHistory())
}
