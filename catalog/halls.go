package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ResolveHall maps a loose hall reference ("ezra-stiles-college",
// "silliman", "Pierson College") onto a catalog key. Candidates are ranked:
// exact match, then exact match after normalization, then a normalized
// query contained in a hall name, then a hall name contained in the query.
// Within a rank the alphabetically first hall wins.
func ResolveHall(c Catalog, query string) (string, bool) {
	q := normalizeHall(query)
	if q == "" {
		return "", false
	}

	best, bestRank := "", 0
	for _, hall := range c.Halls() {
		h := normalizeHall(hall)
		rank := 0
		switch {
		case hall == query:
			rank = 4
		case h == q:
			rank = 3
		case strings.Contains(h, q):
			rank = 2
		case h != "" && strings.Contains(q, h):
			rank = 1
		}
		if rank > bestRank {
			best, bestRank = hall, rank
		}
	}
	return best, bestRank > 0
}

func normalizeHall(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.TrimSuffix(s, " college")
	return strings.Join(strings.Fields(s), " ")
}

// Meal names.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealCurrent   = "current"
)

// MealAt returns the meal being served at t using the fixed serving
// windows: breakfast until 11:30, lunch until 15:00, dinner until 20:00,
// and breakfast again after that.
func MealAt(t time.Time) string {
	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes < 11*60+30:
		return MealBreakfast
	case minutes < 15*60:
		return MealLunch
	case minutes < 20*60:
		return MealDinner
	default:
		return MealBreakfast
	}
}

// FormatMenuText renders one hall's menu as plain text.
func FormatMenuText(hall string, menu Menu) string {
	lines := []string{fmt.Sprintf("=== %s Menu ===", hall)}
	for _, station := range menu.Stations() {
		items := menu[station]
		if len(items) == 0 {
			continue
		}
		lines = append(lines, "", fmt.Sprintf("[%s]", station))
		for _, it := range items {
			cal := "cal N/A"
			if v, ok := it.Calories.Positive(); ok {
				cal = fmt.Sprintf("%d cal", int(v))
			}
			pro := "protein N/A"
			if v, ok := it.ProteinG.Positive(); ok {
				pro = FormatNumber(v) + "g protein"
			}
			flags := "none"
			if len(it.DietaryFlags) > 0 {
				flags = strings.Join(it.DietaryFlags, ", ")
			}
			lines = append(lines, fmt.Sprintf("  - %s: %s | %s | %s", it.Name, cal, pro, flags))
		}
	}
	return strings.Join(lines, "\n")
}

// FormatNumber prints a nutrition figure without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
