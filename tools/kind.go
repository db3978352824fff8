package tools

// Kind identifies one of the known tools. Names coming from the reasoning
// service are parsed into a Kind once and all routing switches on it.
type Kind int

const (
	KindUnknown Kind = iota
	KindSearchMenu
	KindFilterByDietaryNeed
	KindCompareNutrition
	KindCheckUserGoals
	KindGetMenu
	KindGetNutrition
	KindSendRecommendation
	KindRankDiningHalls
)

var kindNames = map[Kind]string{
	KindSearchMenu:          "search_menu",
	KindFilterByDietaryNeed: "filter_by_dietary_need",
	KindCompareNutrition:    "compare_nutrition",
	KindCheckUserGoals:      "check_user_goals",
	KindGetMenu:             "get_menu",
	KindGetNutrition:        "get_nutrition",
	KindSendRecommendation:  "send_recommendation",
	KindRankDiningHalls:     "rank_dining_halls",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a tool name onto its Kind, or KindUnknown.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return k
		}
	}
	return KindUnknown
}

// AllKinds lists every known tool in declaration order.
func AllKinds() []Kind {
	return []Kind{
		KindSearchMenu,
		KindFilterByDietaryNeed,
		KindCompareNutrition,
		KindCheckUserGoals,
		KindGetMenu,
		KindGetNutrition,
		KindSendRecommendation,
		KindRankDiningHalls,
	}
}
