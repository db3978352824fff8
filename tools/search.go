package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"menuagent/catalog"
	"menuagent/retrieval"
)

const (
	defaultTopK     = 10
	maxTopK         = 20
	maxDietaryItems = 25
)

// formatItem renders one item as a single bullet line.
func formatItem(hall, station string, item catalog.FoodItem) string {
	parts := []string{"cal N/A", "protein N/A"}
	if v, ok := item.Calories.Positive(); ok {
		parts[0] = fmt.Sprintf("%d cal", int(v))
	}
	if v, ok := item.ProteinG.Positive(); ok {
		parts[1] = catalog.FormatNumber(v) + "g protein"
	}
	if v, ok := item.CarbsG.Positive(); ok {
		parts = append(parts, catalog.FormatNumber(v)+"g carbs")
	}
	if v, ok := item.FatG.Positive(); ok {
		parts = append(parts, catalog.FormatNumber(v)+"g fat")
	}

	flags := "no special flags"
	if len(item.DietaryFlags) > 0 {
		flags = strings.Join(item.DietaryFlags, ", ")
	}

	where := station
	if hall != "" {
		where = hall + ", " + station
	}
	return fmt.Sprintf("- %s [%s]: %s | flags: %s", item.Name, where, strings.Join(parts, " | "), flags)
}

type SearchMenu struct {
	index   *retrieval.Index
	catalog catalog.Catalog
}

func NewSearchMenu(index *retrieval.Index, c catalog.Catalog) *SearchMenu {
	return &SearchMenu{index: index, catalog: c}
}

func (t *SearchMenu) Name() string  { return KindSearchMenu.String() }
func (t *SearchMenu) Title() string { return "Search Menu" }
func (t *SearchMenu) Description() string {
	return "Search all dining hall menus for food items matching a query. " +
		"Returns the top-k most relevant items with nutritional info and dietary flags. " +
		"Use this to find specific dishes, ingredients, or cuisine types."
}

func (t *SearchMenu) InputSchema() *jsonschema.Schema {
	minK, maxK := 1.0, float64(maxTopK)
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "What to search for (e.g. 'grilled chicken', 'vegan pasta', 'high protein breakfast')",
			},
			"top_k": {
				Type:        "integer",
				Description: "Number of results to return (default 10, max 20)",
				Minimum:     &minK,
				Maximum:     &maxK,
			},
			"dining_hall": {
				Type:        "string",
				Description: "Optional dining hall to restrict the search to",
			},
		},
		Required: []string{"query"},
	}
}

func (t *SearchMenu) OutputSchema() *jsonschema.Schema { return textSchema() }

func (t *SearchMenu) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	query := strings.TrimSpace(stringArg(input, "query"))
	if query == "" {
		return textOutput("No results found for ''", 0), nil
	}
	topK := min(intArg(input, "top_k", defaultTopK), maxTopK)
	if topK <= 0 {
		topK = defaultTopK
	}

	var opts retrieval.SearchOptions
	if raw := stringArg(input, "dining_hall"); raw != "" {
		hall, ok := catalog.ResolveHall(t.catalog, raw)
		if !ok {
			return nil, fmt.Errorf("unknown dining hall %q", raw)
		}
		opts.Hall = hall
	}

	results := t.index.Search(query, topK, opts)
	if len(results) == 0 {
		return textOutput(fmt.Sprintf("No results found for '%s'", query), 0), nil
	}

	lines := []string{fmt.Sprintf("Search results for '%s':", query)}
	for _, r := range results {
		lines = append(lines, formatItem(r.Metadata.Hall, r.Metadata.Station, r.Metadata.Item))
	}
	return textOutput(strings.Join(lines, "\n"), len(results)), nil
}

type FilterByDietaryNeed struct {
	catalog catalog.Catalog
}

func NewFilterByDietaryNeed(c catalog.Catalog) *FilterByDietaryNeed {
	return &FilterByDietaryNeed{catalog: c}
}

func (t *FilterByDietaryNeed) Name() string  { return KindFilterByDietaryNeed.String() }
func (t *FilterByDietaryNeed) Title() string { return "Filter by Dietary Need" }
func (t *FilterByDietaryNeed) Description() string {
	return "Find menu items that match a specific dietary restriction or label. " +
		"Useful for vegan, vegetarian, gluten-free, halal, kosher filtering."
}

func (t *FilterByDietaryNeed) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"restriction": {
				Type:        "string",
				Description: "Dietary restriction keyword (e.g. 'vegan', 'gluten-free', 'halal', 'vegetarian')",
			},
		},
		Required: []string{"restriction"},
	}
}

func (t *FilterByDietaryNeed) OutputSchema() *jsonschema.Schema { return textSchema() }

// Run matches the restriction as a plain substring of each item's flags.
// Synonyms are deliberately not expanded here: the tool answers "which
// items carry this label".
func (t *FilterByDietaryNeed) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	restriction := strings.ToLower(strings.TrimSpace(stringArg(input, "restriction")))
	if restriction == "" {
		return nil, errors.New("restriction is required")
	}

	var matches []string
	t.catalog.Each(func(e catalog.Entry) bool {
		if strings.Contains(e.Item.FlagString(), restriction) {
			matches = append(matches, formatItem(e.Hall, e.Station, e.Item))
		}
		return len(matches) < maxDietaryItems
	})

	if len(matches) == 0 {
		return textOutput(fmt.Sprintf("No items found matching '%s'", restriction), 0), nil
	}
	text := fmt.Sprintf("Items matching '%s':\n", restriction) + strings.Join(matches, "\n")
	return textOutput(text, len(matches)), nil
}

type CompareNutrition struct {
	index *retrieval.Index
}

func NewCompareNutrition(index *retrieval.Index) *CompareNutrition {
	return &CompareNutrition{index: index}
}

func (t *CompareNutrition) Name() string  { return KindCompareNutrition.String() }
func (t *CompareNutrition) Title() string { return "Compare Nutrition" }
func (t *CompareNutrition) Description() string {
	return "Look up and compare the nutritional content (calories, protein, carbs, fat, fiber) " +
		"of specific food items."
}

func (t *CompareNutrition) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"item_names": {
				Type:        "array",
				Items:       &jsonschema.Schema{Type: "string"},
				Description: "List of food item names to compare",
			},
		},
		Required: []string{"item_names"},
	}
}

func (t *CompareNutrition) OutputSchema() *jsonschema.Schema { return textSchema() }

func (t *CompareNutrition) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	var rows []string
	for _, name := range stringsArg(input, "item_names") {
		results := t.index.Search(name, 1, retrieval.SearchOptions{})
		if len(results) == 0 {
			continue
		}
		item := results[0].Metadata.Item
		rows = append(rows, fmt.Sprintf(
			"  %s:\n    Calories: %s\n    Protein:  %sg\n    Carbs:    %sg\n    Fat:      %sg\n    Fiber:    %sg",
			item.Name,
			orNA(item.Calories), orNA(item.ProteinG), orNA(item.CarbsG), orNA(item.FatG), orNA(item.FiberG),
		))
	}

	if len(rows) == 0 {
		return textOutput("No nutritional data found for those items.", 0), nil
	}
	return textOutput("Nutritional Comparison:\n"+strings.Join(rows, "\n"), len(rows)), nil
}

func orNA(q catalog.Quantity) string {
	if v, ok := q.Positive(); ok {
		return catalog.FormatNumber(v)
	}
	return "N/A"
}
