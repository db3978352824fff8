package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"menuagent"
	"menuagent/catalog"
)

const (
	maxMenuItems      = 40
	maxNutritionItems = 15
)

type CheckUserGoals struct {
	profile menuagent.Profile
}

func NewCheckUserGoals(profile menuagent.Profile) *CheckUserGoals {
	return &CheckUserGoals{profile: profile}
}

func (t *CheckUserGoals) Name() string  { return KindCheckUserGoals.String() }
func (t *CheckUserGoals) Title() string { return "Check User Goals" }
func (t *CheckUserGoals) Description() string {
	return "Retrieve the user's saved dietary restrictions, daily calorie goal, " +
		"and protein goal. Always call this first so you can personalise recommendations."
}

func (t *CheckUserGoals) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}
}

func (t *CheckUserGoals) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"restrictions": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"calorie_goal": {Type: "integer"},
			"protein_goal": {Type: "integer"},
		},
		Required: []string{"restrictions", "calorie_goal", "protein_goal"},
	}
}

func (t *CheckUserGoals) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	restrictions := make([]any, 0, len(t.profile.Restrictions))
	for _, r := range t.profile.Restrictions {
		restrictions = append(restrictions, r)
	}
	return map[string]any{
		"restrictions": restrictions,
		"calorie_goal": t.profile.Calories(),
		"protein_goal": t.profile.Protein(),
	}, nil
}

type menuItem struct {
	Name         string           `json:"name"`
	DiningHall   string           `json:"dining_hall"`
	Station      string           `json:"station"`
	Calories     catalog.Quantity `json:"calories"`
	ProteinG     catalog.Quantity `json:"protein_g"`
	DietaryFlags []string         `json:"dietary_flags"`
}

type GetMenu struct {
	snapshot catalog.Snapshot
	profile  menuagent.Profile
}

func NewGetMenu(snapshot catalog.Snapshot, profile menuagent.Profile) *GetMenu {
	return &GetMenu{snapshot: snapshot, profile: profile}
}

func (t *GetMenu) Name() string  { return KindGetMenu.String() }
func (t *GetMenu) Title() string { return "Get Menu" }
func (t *GetMenu) Description() string {
	return "Fetch today's dining hall menu items. Returns food items across all dining halls " +
		"filtered by the user's dietary restrictions, with nutritional info. " +
		"Always call this before making recommendations."
}

func (t *GetMenu) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"meal_type": {
				Type:        "string",
				Enum:        []any{catalog.MealBreakfast, catalog.MealLunch, catalog.MealDinner, catalog.MealCurrent},
				Description: "Which meal to fetch. 'current' uses the meal being served now.",
			},
		},
		Required: []string{"meal_type"},
	}
}

func (t *GetMenu) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"meal":        {Type: "string"},
			"total_items": {Type: "integer"},
			"halls":       {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"items":       {Type: "array", Items: &jsonschema.Schema{Type: "object"}},
			"note":        {Type: "string"},
		},
		Required: []string{"meal", "total_items", "halls", "items"},
	}
}

// Run lists the loaded snapshot's items whose flags contain every profile
// restriction, highest protein first. Only one meal is loaded per cycle, so
// asking for a different named meal returns the loaded one with a note.
func (t *GetMenu) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	requested := strings.ToLower(strings.TrimSpace(stringArg(input, "meal_type")))
	switch requested {
	case "", catalog.MealCurrent, catalog.MealBreakfast, catalog.MealLunch, catalog.MealDinner:
	default:
		return nil, fmt.Errorf("unknown meal_type %q", requested)
	}

	restrictions := make([]string, 0, len(t.profile.Restrictions))
	for _, r := range t.profile.Restrictions {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			restrictions = append(restrictions, r)
		}
	}

	items := make([]menuItem, 0)
	t.snapshot.Catalog.Each(func(e catalog.Entry) bool {
		flags := e.Item.FlagString()
		for _, r := range restrictions {
			if !strings.Contains(flags, r) {
				return true
			}
		}
		items = append(items, menuItem{
			Name:         e.Item.Name,
			DiningHall:   e.Hall,
			Station:      e.Station,
			Calories:     e.Item.Calories,
			ProteinG:     e.Item.ProteinG,
			DietaryFlags: nonNil(e.Item.DietaryFlags),
		})
		return true
	})

	sort.SliceStable(items, func(i, j int) bool {
		pi, _ := items[i].ProteinG.Float()
		pj, _ := items[j].ProteinG.Float()
		return pi > pj
	})

	out := struct {
		Meal       string     `json:"meal"`
		TotalItems int        `json:"total_items"`
		Halls      []string   `json:"halls"`
		Items      []menuItem `json:"items"`
		Note       string     `json:"note,omitempty"`
	}{
		Meal:       t.snapshot.Meal,
		TotalItems: len(items),
		Halls:      nonNil(t.snapshot.Catalog.Halls()),
		Items:      items[:min(len(items), maxMenuItems)],
	}
	if requested != "" && requested != catalog.MealCurrent && requested != t.snapshot.Meal {
		out.Note = fmt.Sprintf("Only the %s menu is available right now; %s items are not loaded.", t.snapshot.Meal, requested)
	}
	return toMap(out)
}

type GetNutrition struct {
	catalog catalog.Catalog
}

func NewGetNutrition(c catalog.Catalog) *GetNutrition {
	return &GetNutrition{catalog: c}
}

func (t *GetNutrition) Name() string  { return KindGetNutrition.String() }
func (t *GetNutrition) Title() string { return "Get Nutrition" }
func (t *GetNutrition) Description() string {
	return "Look up detailed nutritional info (calories, protein, carbs, fat, fiber) " +
		"for specific menu items by name. Use this to compare 3-5 promising candidates " +
		"before making your final recommendation."
}

func (t *GetNutrition) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"item_names": {
				Type:        "array",
				Items:       &jsonschema.Schema{Type: "string"},
				Description: "Food item names to look up (partial matches work).",
			},
		},
		Required: []string{"item_names"},
	}
}

func (t *GetNutrition) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"nutrition_data": {Type: "array", Items: &jsonschema.Schema{Type: "object"}},
		},
		Required: []string{"nutrition_data"},
	}
}

type nutritionItem struct {
	Name         string           `json:"name"`
	DiningHall   string           `json:"dining_hall"`
	Station      string           `json:"station"`
	Calories     catalog.Quantity `json:"calories"`
	ProteinG     catalog.Quantity `json:"protein_g"`
	CarbsG       catalog.Quantity `json:"carbs_g"`
	FatG         catalog.Quantity `json:"fat_g"`
	FiberG       catalog.Quantity `json:"fiber_g"`
	DietaryFlags []string         `json:"dietary_flags"`
}

// Run returns every item whose name contains any of the requested names,
// not just the best match.
func (t *GetNutrition) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	var targets []string
	for _, n := range stringsArg(input, "item_names") {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			targets = append(targets, n)
		}
	}

	found := make([]nutritionItem, 0)
	if len(targets) > 0 {
		t.catalog.Each(func(e catalog.Entry) bool {
			name := strings.ToLower(e.Item.Name)
			for _, target := range targets {
				if strings.Contains(name, target) {
					found = append(found, nutritionItem{
						Name:         e.Item.Name,
						DiningHall:   e.Hall,
						Station:      e.Station,
						Calories:     e.Item.Calories,
						ProteinG:     e.Item.ProteinG,
						CarbsG:       e.Item.CarbsG,
						FatG:         e.Item.FatG,
						FiberG:       e.Item.FiberG,
						DietaryFlags: nonNil(e.Item.DietaryFlags),
					})
					break
				}
			}
			return len(found) < maxNutritionItems
		})
	}

	return toMap(struct {
		NutritionData []nutritionItem `json:"nutrition_data"`
	}{found})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
