package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Quantity is an optional nutrition figure. Upstream feeds send numbers,
// numeric strings and nulls interchangeably, so the raw text is retained
// and parsed on demand.
type Quantity string

// Q builds a Quantity from a number.
func Q(v float64) Quantity {
	return Quantity(strconv.FormatFloat(v, 'f', -1, 64))
}

// IsSet reports whether the upstream sent any value at all.
func (q Quantity) IsSet() bool { return strings.TrimSpace(string(q)) != "" }

// Float returns the numeric value. ok is false when the value is missing
// or cannot be parsed.
func (q Quantity) Float() (float64, bool) {
	if !q.IsSet() {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(q)), 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}

// Positive reports the value when it is set, parseable and non-zero.
func (q Quantity) Positive() (float64, bool) {
	f, ok := q.Float()
	if !ok || f == 0 {
		return 0, false
	}
	return f, true
}

func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}
	*q = Quantity(b)
	return nil
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.IsSet() {
		return []byte("null"), nil
	}
	if f, ok := q.Float(); ok {
		return json.Marshal(f)
	}
	return json.Marshal(string(q))
}

// FoodItem is a single menu entry as normalized by the fetch layer.
type FoodItem struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Calories     Quantity `json:"calories"`
	ProteinG     Quantity `json:"protein_g"`
	CarbsG       Quantity `json:"carbs_g"`
	FatG         Quantity `json:"fat_g"`
	FiberG       Quantity `json:"fiber_g"`
	SodiumMG     Quantity `json:"sodium_mg"`
	ServingSize  string   `json:"serving_size,omitempty"`
	DietaryFlags []string `json:"dietary_flags"`
}

// FlagString returns the lower-cased dietary flags joined by spaces, the
// form every keyword match runs against.
func (f FoodItem) FlagString() string {
	lower := make([]string, 0, len(f.DietaryFlags))
	for _, flag := range f.DietaryFlags {
		lower = append(lower, strings.ToLower(flag))
	}
	return strings.Join(lower, " ")
}

// Protein returns protein grams, treating missing or invalid values as 0.
func (f FoodItem) Protein() float64 {
	p, _ := f.ProteinG.Float()
	return p
}
