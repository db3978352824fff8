package retrieval

import (
	"sort"
	"strings"
)

// hallSearchDepth bounds how many documents contribute to hall scores.
const hallSearchDepth = 200

// HallQuery is the free-text part of a user profile that drives hall
// ranking.
type HallQuery struct {
	Goal         string
	Preferences  string
	Restrictions string
}

// HallScore is a hall's summed relevance.
type HallScore struct {
	Hall  string  `json:"hall"`
	Score float64 `json:"score"`
}

// ScoreHalls ranks halls by the summed BM25 score of their items against
// the query. Known restriction keywords mentioned in q.Restrictions become
// hard dietary gates. When fewer than topN halls score, the remaining halls
// are appended with a zero score in first-seen order, so the result has
// topN entries whenever the index has that many halls.
func ScoreHalls(q HallQuery, ix *Index, topN int) []HallScore {
	if topN <= 0 {
		return nil
	}

	var parts []string
	for _, p := range []string{q.Goal, q.Preferences, q.Restrictions} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	raw := strings.ToLower(q.Restrictions)
	var dietary []string
	for _, key := range ix.Restrictions().Keywords() {
		if strings.Contains(raw, key) || strings.Contains(raw, strings.ReplaceAll(key, "-", " ")) {
			dietary = append(dietary, key)
		}
	}

	totals := make(map[string]float64)
	for _, r := range ix.Search(strings.Join(parts, " "), hallSearchDepth, SearchOptions{Dietary: dietary}) {
		if r.Metadata.Hall != "" {
			totals[r.Metadata.Hall] += r.Score
		}
	}

	ranked := make([]HallScore, 0, len(totals))
	for hall, score := range totals {
		ranked = append(ranked, HallScore{Hall: hall, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Hall < ranked[j].Hall
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	for _, hall := range ix.Halls() {
		if len(ranked) >= topN {
			break
		}
		if _, scored := totals[hall]; !scored {
			ranked = append(ranked, HallScore{Hall: hall})
		}
	}
	return ranked
}
