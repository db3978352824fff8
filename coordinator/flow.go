package coordinator

import (
	"fmt"
	"strings"

	"menuagent"
	"menuagent/tools"
)

// Flow describes one kind of recommendation run: its turn budget, the tools
// it offers and how it talks to the service.
type Flow struct {
	Name     string
	MaxTurns int
	Tools    []tools.Kind
	// Structured flows end through send_recommendation.
	Structured bool
}

var (
	// FlowAdvisor answers in free text after searching the menu.
	FlowAdvisor = Flow{
		Name:     "advisor",
		MaxTurns: 6,
		Tools: []tools.Kind{
			tools.KindSearchMenu,
			tools.KindFilterByDietaryNeed,
			tools.KindCompareNutrition,
			tools.KindRankDiningHalls,
		},
	}

	// FlowPlanner follows the goals, menu, nutrition, send workflow and
	// returns a structured recommendation.
	FlowPlanner = Flow{
		Name:     "planner",
		MaxTurns: 10,
		Tools: []tools.Kind{
			tools.KindCheckUserGoals,
			tools.KindGetMenu,
			tools.KindGetNutrition,
			tools.KindSendRecommendation,
		},
		Structured: true,
	}
)

// ParseFlow resolves a flow by name.
func ParseFlow(name string) (Flow, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FlowAdvisor.Name, "":
		return FlowAdvisor, nil
	case FlowPlanner.Name:
		return FlowPlanner, nil
	default:
		return Flow{}, fmt.Errorf("unknown flow %q", name)
	}
}

// Request is the input of one run.
type Request struct {
	Flow Flow
	// MaxTurns overrides Flow.MaxTurns when positive.
	MaxTurns int
	// Tools should be restricted to Flow.Tools, e.g. registry.Subset(flow.Tools...).
	Tools   Dispatcher
	Profile menuagent.Profile
	Meal    string
	// Date labels the result; the run's own date is used when empty.
	Date string
	// Message replaces the default user message.
	Message string
}

func (r Request) turns() int {
	if r.MaxTurns > 0 {
		return r.MaxTurns
	}
	if r.Flow.MaxTurns > 0 {
		return r.Flow.MaxTurns
	}
	return FlowAdvisor.MaxTurns
}

// State is where a run ended.
type State int

const (
	StateDone State = iota
	StateMaxTurnsExhausted
)

func (s State) String() string {
	switch s {
	case StateDone:
		return "done"
	case StateMaxTurnsExhausted:
		return "max_turns_exhausted"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Result is the outcome of a successful run.
type Result struct {
	Flow           string                    `json:"flow"`
	Meal           string                    `json:"meal"`
	Date           string                    `json:"date,omitempty"`
	Text           string                    `json:"final_text"`
	Summary        string                    `json:"summary"`
	Recommendation *menuagent.Recommendation `json:"recommendation,omitempty"`
	ToolLog        []menuagent.ToolCallLog   `json:"tool_log"`
	Turns          int                       `json:"turns"`
	State          State                     `json:"state"`
	TextOnly       bool                      `json:"text_only,omitempty"`
}
