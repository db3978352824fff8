package retrieval

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"menuagent/catalog"
)

// NumericRule is a threshold on one nutrient. A missing value is replaced
// by Missing before comparing; a value that is present but unparseable
// fails the rule.
type NumericRule struct {
	Nutrient string   `yaml:"nutrient"`
	Min      *float64 `yaml:"min,omitempty"`
	Max      *float64 `yaml:"max,omitempty"`
	Missing  float64  `yaml:"missing"`
}

// Check applies the rule to item.
func (r NumericRule) Check(item catalog.FoodItem) bool {
	q, ok := nutrient(item, r.Nutrient)
	if !ok {
		return false
	}
	v := r.Missing
	if q.IsSet() {
		if v, ok = q.Float(); !ok {
			return false
		}
	}
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func nutrient(item catalog.FoodItem, name string) (catalog.Quantity, bool) {
	switch strings.ToLower(name) {
	case "calories":
		return item.Calories, true
	case "protein_g", "protein":
		return item.ProteinG, true
	case "carbs_g", "carbs":
		return item.CarbsG, true
	case "fat_g", "fat":
		return item.FatG, true
	case "fiber_g", "fiber":
		return item.FiberG, true
	case "sodium_mg", "sodium":
		return item.SodiumMG, true
	}
	return "", false
}

// Restrictions holds the dietary tables: keyword restrictions map to the
// synonyms searched for in an item's flags, numeric restrictions map to a
// nutrient threshold. Keys are lower-case.
type Restrictions struct {
	Synonyms map[string][]string    `yaml:"synonyms"`
	Numeric  map[string]NumericRule `yaml:"numeric"`
}

func ptr(v float64) *float64 { return &v }

// DefaultRestrictions returns the built-in tables.
func DefaultRestrictions() Restrictions {
	highProtein := NumericRule{Nutrient: "protein_g", Min: ptr(15), Missing: 0}
	lowCalorie := NumericRule{Nutrient: "calories", Max: ptr(400), Missing: 9999}
	return Restrictions{
		Synonyms: map[string][]string{
			"vegan":       {"vegan", "plant-based"},
			"vegetarian":  {"vegetarian", "vegan"},
			"gluten-free": {"gluten", "gluten-free", "gluten free"},
			"halal":       {"halal"},
			"kosher":      {"kosher"},
			"dairy-free":  {"dairy", "dairy-free", "dairy free", "lactose"},
			"nut-free":    {"nut", "peanut", "tree nut"},
		},
		Numeric: map[string]NumericRule{
			"high-protein": highProtein,
			"high protein": highProtein,
			"low-calorie":  lowCalorie,
			"low calorie":  lowCalorie,
		},
	}
}

// LoadRestrictions reads a YAML document of the form
//
//	synonyms:
//	  pescatarian: [pescatarian, fish, vegetarian, vegan]
//	numeric:
//	  low-sodium: {nutrient: sodium_mg, max: 500, missing: 9999}
//
// and merges it onto the defaults. An entry replaces the default entry under
// both its hyphenated and spaced spelling, so "high-protein" and
// "high protein" always gate alike.
func LoadRestrictions(r io.Reader) (Restrictions, error) {
	var override Restrictions
	if err := yaml.NewDecoder(r).Decode(&override); err != nil && err != io.EOF {
		return Restrictions{}, fmt.Errorf("decode restrictions: %w", err)
	}

	out := DefaultRestrictions()
	for k, syns := range override.Synonyms {
		lower := make([]string, len(syns))
		for i, s := range syns {
			lower[i] = strings.ToLower(s)
		}
		for _, alias := range aliases(k) {
			out.Synonyms[alias] = lower
		}
	}
	for k, rule := range override.Numeric {
		if _, ok := nutrient(catalog.FoodItem{}, rule.Nutrient); !ok {
			return Restrictions{}, fmt.Errorf("restriction %q: unknown nutrient %q", k, rule.Nutrient)
		}
		for _, alias := range aliases(k) {
			out.Numeric[alias] = rule
		}
	}
	return out, nil
}

// aliases returns key lower-cased in its hyphenated and spaced spellings.
func aliases(key string) []string {
	key = strings.ToLower(strings.TrimSpace(key))
	hyphen := strings.ReplaceAll(key, " ", "-")
	spaced := strings.ReplaceAll(key, "-", " ")
	if hyphen == spaced {
		return []string{key}
	}
	return []string{hyphen, spaced}
}

// Matches reports whether item satisfies every restriction. Numeric
// restrictions are checked against nutrition; any other restriction passes
// when one of its synonyms occurs in the item's flags. A spaced restriction
// with no entry of its own uses its hyphenated entry; a restriction with no
// entry at all is its own only synonym.
func (r Restrictions) Matches(item catalog.FoodItem, restrictions []string) bool {
	flags := item.FlagString()
	for _, raw := range restrictions {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if _, known := r.Numeric[key]; !known {
			if _, known = r.Synonyms[key]; !known {
				key = strings.ReplaceAll(key, " ", "-")
			}
		}
		if rule, ok := r.Numeric[key]; ok {
			if !rule.Check(item) {
				return false
			}
			continue
		}
		synonyms, ok := r.Synonyms[key]
		if !ok {
			synonyms = []string{strings.ToLower(strings.TrimSpace(raw))}
		}
		if !containsAny(flags, synonyms) {
			return false
		}
	}
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Keywords returns the known restriction keys in sorted order. Spaced
// aliases of a hyphenated key ("high protein") are omitted.
func (r Restrictions) Keywords() []string {
	keys := make(map[string]bool, len(r.Synonyms)+len(r.Numeric))
	for k := range r.Synonyms {
		keys[k] = true
	}
	for k := range r.Numeric {
		keys[k] = true
	}

	var out []string
	for k := range keys {
		if strings.Contains(k, " ") && keys[strings.ReplaceAll(k, " ", "-")] {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
