package menuagent

import (
	"context"
	"net/http"
	"strings"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type SlackClient interface {
	PostMessage(ctx context.Context, channel string, message string) error
}

const (
	DefaultCalorieGoal = 2000
	DefaultProteinGoal = 50
)

// Profile is what the caller knows about the diner.
type Profile struct {
	Goal         string        `json:"goal,omitempty"`
	Preferences  string        `json:"preferences,omitempty"`
	Restrictions []string      `json:"restrictions,omitempty"`
	Allergies    string        `json:"allergies,omitempty"`
	CalorieGoal  int           `json:"calorie_goal,omitempty"`
	ProteinGoal  int           `json:"protein_goal,omitempty"`
	Energy       []EnergyEntry `json:"energy_history,omitempty"`
}

// Calories returns the daily calorie goal, or the default when unset.
func (p Profile) Calories() int {
	if p.CalorieGoal > 0 {
		return p.CalorieGoal
	}
	return DefaultCalorieGoal
}

// Protein returns the daily protein goal in grams, or the default when unset.
func (p Profile) Protein() int {
	if p.ProteinGoal > 0 {
		return p.ProteinGoal
	}
	return DefaultProteinGoal
}

// RestrictionText joins the restrictions for use in free-text queries.
func (p Profile) RestrictionText() string {
	return strings.Join(p.Restrictions, ", ")
}

// EnergyEntry is one self-reported energy level after a meal.
type EnergyEntry struct {
	Meal  string `json:"meal"`
	Time  string `json:"time"`
	Level string `json:"level"`
}

// Recommendation is the structured answer delivered through the
// send_recommendation tool.
type Recommendation struct {
	MealType        string            `json:"meal_type"`
	Recommendations []RecommendedItem `json:"recommendations"`
	Summary         string            `json:"summary"`
}

// RecommendedItem is a single pick within a Recommendation.
type RecommendedItem struct {
	Name       string   `json:"name"`
	DiningHall string   `json:"dining_hall,omitempty"`
	Station    string   `json:"station,omitempty"`
	Reason     string   `json:"reason"`
	Calories   *float64 `json:"calories,omitempty"`
	ProteinG   *float64 `json:"protein_g,omitempty"`
}

// IsValid checks that the required fields are present
func (r *Recommendation) IsValid() bool {
	if r.MealType == "" || r.Summary == "" || r.Recommendations == nil {
		return false
	}
	for _, item := range r.Recommendations {
		if item.Name == "" || item.Reason == "" {
			return false
		}
	}
	return true
}
