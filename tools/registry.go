package tools

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"menuagent"
	"menuagent/catalog"
	"menuagent/retrieval"
)

// Env is the read-only state one recommendation cycle runs against.
type Env struct {
	Snapshot catalog.Snapshot
	Index    *retrieval.Index
	Profile  menuagent.Profile
}

// Registry holds one tool per Kind. A registry produced by Subset only
// answers for the kinds it was restricted to.
type Registry struct {
	searchMenu          *SearchMenu
	filterByDietaryNeed *FilterByDietaryNeed
	compareNutrition    *CompareNutrition
	checkUserGoals      *CheckUserGoals
	getMenu             *GetMenu
	getNutrition        *GetNutrition
	sendRecommendation  *SendRecommendation
	rankDiningHalls     *RankDiningHalls

	enabled []Kind
}

// NewRegistry creates a registry with every tool bound to env. A nil index
// is built from the snapshot with the default restriction tables.
func NewRegistry(env Env) *Registry {
	if env.Index == nil {
		env.Index = retrieval.BuildIndex(env.Snapshot.Catalog, retrieval.DefaultRestrictions())
	}
	return &Registry{
		searchMenu:          NewSearchMenu(env.Index, env.Snapshot.Catalog),
		filterByDietaryNeed: NewFilterByDietaryNeed(env.Snapshot.Catalog),
		compareNutrition:    NewCompareNutrition(env.Index),
		checkUserGoals:      NewCheckUserGoals(env.Profile),
		getMenu:             NewGetMenu(env.Snapshot, env.Profile),
		getNutrition:        NewGetNutrition(env.Snapshot.Catalog),
		sendRecommendation:  NewSendRecommendation(),
		rankDiningHalls:     NewRankDiningHalls(env.Index, env.Profile),
		enabled:             AllKinds(),
	}
}

// Subset returns a registry restricted to kinds, in the order given.
// Kinds this registry does not enable are dropped.
func (r *Registry) Subset(kinds ...Kind) *Registry {
	sub := *r
	sub.enabled = make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		if r.has(k) && !slices.Contains(sub.enabled, k) {
			sub.enabled = append(sub.enabled, k)
		}
	}
	return &sub
}

func (r *Registry) has(k Kind) bool {
	return k != KindUnknown && slices.Contains(r.enabled, k)
}

func (r *Registry) tool(k Kind) Tool {
	switch k {
	case KindSearchMenu:
		return r.searchMenu
	case KindFilterByDietaryNeed:
		return r.filterByDietaryNeed
	case KindCompareNutrition:
		return r.compareNutrition
	case KindCheckUserGoals:
		return r.checkUserGoals
	case KindGetMenu:
		return r.getMenu
	case KindGetNutrition:
		return r.getNutrition
	case KindSendRecommendation:
		return r.sendRecommendation
	case KindRankDiningHalls:
		return r.rankDiningHalls
	default:
		return nil
	}
}

// GetTools returns the enabled tools in a stable order.
func (r *Registry) GetTools() []Tool {
	out := make([]Tool, 0, len(r.enabled))
	for _, k := range r.enabled {
		out = append(out, r.tool(k))
	}
	return out
}

// GetTool retrieves an enabled tool by name.
func (r *Registry) GetTool(name string) (Tool, error) {
	k := ParseKind(name)
	if !r.has(k) {
		return nil, fmt.Errorf("tool %q not found in registry", name)
	}
	return r.tool(k), nil
}

// Dispatch runs call and always returns a result map. Unknown or disabled
// tools and tool failures are reported in an "error" entry so the reasoning
// service can see them.
func (r *Registry) Dispatch(ctx context.Context, call Call) map[string]any {
	kind := ParseKind(call.Name)
	if !r.has(kind) {
		slog.Warn("TOOLS: Unknown tool requested", "tool", call.Name)
		return map[string]any{"error": "Unknown tool: " + call.Name}
	}

	input := call.Input
	if input == nil {
		input = map[string]any{}
	}

	start := time.Now()
	out, err := r.tool(kind).Run(ctx, input)
	if err != nil {
		slog.Warn("TOOLS: Tool failed", "tool", call.Name, "error", err)
		return map[string]any{"error": err.Error()}
	}
	slog.Debug("TOOLS: Tool completed", "tool", call.Name, "duration", time.Since(start))
	return out
}
