package tools

import (
	"fmt"
	"strings"
)

// Summarize renders a one-line description of a tool result for the tool
// log shown to the user.
func Summarize(kind Kind, input, output map[string]any) string {
	if msg, ok := output["error"].(string); ok {
		return "error: " + msg
	}

	switch kind {
	case KindSearchMenu:
		return fmt.Sprintf("%d result(s) for '%s'", count(output), stringArg(input, "query"))
	case KindFilterByDietaryNeed:
		return fmt.Sprintf("%d item(s) matching '%s'", count(output), strings.ToLower(stringArg(input, "restriction")))
	case KindCompareNutrition:
		return fmt.Sprintf("compared %d item(s)", count(output))
	case KindCheckUserGoals:
		var restrictions []string
		if list, ok := output["restrictions"].([]any); ok {
			for _, r := range list {
				if s, ok := r.(string); ok {
					restrictions = append(restrictions, s)
				}
			}
		}
		if len(restrictions) == 0 {
			restrictions = []string{"none"}
		}
		return fmt.Sprintf("restrictions: %s  |  %v kcal goal  |  %vg protein goal",
			strings.Join(restrictions, ", "), output["calorie_goal"], output["protein_goal"])
	case KindGetMenu:
		halls, _ := output["halls"].([]any)
		return fmt.Sprintf("%d matching items across %d dining halls", count(output, "total_items"), len(halls))
	case KindGetNutrition:
		items, _ := output["nutrition_data"].([]any)
		if len(items) == 0 {
			return "No matching items found"
		}
		names := make([]string, 0, 4)
		for _, it := range items[:min(len(items), 4)] {
			if m, ok := it.(map[string]any); ok {
				names = append(names, fmt.Sprint(m["name"]))
			}
		}
		return "Retrieved: " + strings.Join(names, ", ")
	case KindSendRecommendation:
		recs, _ := input["recommendations"].([]any)
		return fmt.Sprintf("%d recommendation(s) packaged", len(recs))
	case KindRankDiningHalls:
		halls, _ := output["halls"].([]any)
		names := make([]string, 0, len(halls))
		for _, h := range halls {
			if m, ok := h.(map[string]any); ok {
				names = append(names, fmt.Sprint(m["hall"]))
			}
		}
		return "ranked: " + strings.Join(names, ", ")
	default:
		return ""
	}
}

func count(output map[string]any, key ...string) int {
	k := "count"
	if len(key) > 0 {
		k = key[0]
	}
	return intArg(output, k, 0)
}
