package coordinator

import (
	"fmt"
	"strings"
	"time"

	"menuagent"
)

const advisorSystemPrompt = `You are a helpful dining hall food advisor.
Your job: recommend the best meal options from today's dining menu based on the user's goals, restrictions, and preferences.

Rules:
- Use the search and filter tools to find REAL items available today
- Use rank_dining_halls when the user has not picked a hall
- Always respect dietary restrictions and allergies. They are non-negotiable
- Cite actual food names, calorie counts, and protein numbers
- Keep your recommendation focused and practical

Your response must follow this format:

RECOMMENDED MEAL:
1. [Dish name] - [why it fits, with key nutrition stats]
2. [Dish name] - [why it fits, with key nutrition stats]
3. [Dish name] - [why it fits, with key nutrition stats]

TIP: [One practical tip about eating at the dining hall today]

NOTE: [Any allergy warnings or important caveats, or omit if none]`

const plannerSystemPrompt = `You are an autonomous dining hall meal advisor.

TOOL WORKFLOW (follow this sequence every time):
1. check_user_goals    -> understand the user's dietary profile
2. get_menu            -> fetch today's available options (meal_type="current")
3. get_nutrition       -> compare 3-5 promising candidates in detail
4. send_recommendation -> deliver your final top-3 picks

%sToday: %s | Current meal: %s

Rules:
- Dietary restrictions are NON-NEGOTIABLE. Never recommend a restricted item
- Only recommend items confirmed to exist in the menu data returned by get_menu
- Every recommendation must include calories and protein_g from real data
- The "reason" field must explain specifically how this item meets the user's goals
- summary <= 60 words, practical and direct, no filler phrases`

// finalTurnNudge is appended after the tool results of the second-to-last
// turn.
const finalTurnNudge = "You have one turn left. Your next reply must be your final answer. Do not request any more tools."

const (
	energyHistoryWindow = 6
	lowEnergyThreshold  = 2
)

// SystemPrompt returns the system prompt for flow.
func SystemPrompt(flow Flow, p menuagent.Profile, meal string, now time.Time) string {
	if !flow.Structured {
		return advisorSystemPrompt
	}
	return fmt.Sprintf(plannerSystemPrompt, EnergyContext(p.Energy), now.Format("Monday, January 2, 2006"), meal)
}

// EnergyContext renders the most recent energy log entries. Two or more
// "low" reports add an instruction to favour protein and complex carbs.
func EnergyContext(history []menuagent.EnergyEntry) string {
	if len(history) == 0 {
		return ""
	}

	recent := history
	if len(recent) > energyHistoryWindow {
		recent = recent[len(recent)-energyHistoryWindow:]
	}

	var b strings.Builder
	b.WriteString("User energy log today:\n")
	for _, e := range recent {
		fmt.Fprintf(&b, "  - %s (%s): %s energy\n", orUnknown(e.Meal), orUnknown(e.Time), orUnknown(e.Level))
	}
	b.WriteString("\n")

	lows := 0
	for _, e := range history {
		if strings.EqualFold(e.Level, "low") {
			lows++
		}
	}
	if lows >= lowEnergyThreshold {
		b.WriteString("User has reported low energy multiple times. Strongly prioritise high-protein, complex-carb options.\n\n")
	}
	return b.String()
}

// UserMessage returns the opening user message for a run.
func UserMessage(flow Flow, p menuagent.Profile, meal, message string) string {
	if flow.Structured {
		if message != "" {
			return message
		}
		return fmt.Sprintf("It's %s time. Analyse today's menu and give me your top recommendations.", meal)
	}

	if message == "" {
		message = fmt.Sprintf("Today's meal is %s. Use the tools to search the menu and recommend the best dishes for this user. Be specific and practical.", meal)
	}
	return ProfileBlock(p) + "\n\n" + message
}

// ProfileBlock renders the diner's profile for the advisor prompt.
func ProfileBlock(p menuagent.Profile) string {
	restrictions := p.RestrictionText()
	if restrictions == "" {
		restrictions = "none"
	}
	return fmt.Sprintf(
		"User dietary profile:\n  Goal:         %s\n  Restrictions: %s\n  Allergies:    %s\n  Preferences:  %s",
		orDefault(p.Goal, "balanced meal"),
		restrictions,
		orDefault(p.Allergies, "none"),
		orDefault(p.Preferences, "no specific preference"),
	)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func orUnknown(s string) string { return orDefault(s, "?") }
