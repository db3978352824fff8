package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"menuagent"
)

type SendRecommendation struct{}

func NewSendRecommendation() *SendRecommendation { return &SendRecommendation{} }

func (t *SendRecommendation) Name() string  { return KindSendRecommendation.String() }
func (t *SendRecommendation) Title() string { return "Send Recommendation" }
func (t *SendRecommendation) Description() string {
	return "Deliver your final personalised meal recommendation. Call this once you have " +
		"analysed the menu and identified the best matches for the user's goals."
}

func (t *SendRecommendation) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"meal_type": {
				Type:        "string",
				Description: "The meal being recommended (breakfast / lunch / dinner).",
			},
			"recommendations": {
				Type:        "array",
				Description: "Top 3 recommended items.",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name":        {Type: "string"},
						"dining_hall": {Type: "string"},
						"station":     {Type: "string"},
						"reason": {
							Type:        "string",
							Description: "Why this item fits the user's specific goals.",
						},
						"calories":  {Type: "number"},
						"protein_g": {Type: "number"},
					},
					Required: []string{"name", "reason"},
				},
			},
			"summary": {
				Type:        "string",
				Description: "A concise (60 words or fewer) natural-language summary of the meal plan.",
			},
		},
		Required: []string{"meal_type", "recommendations", "summary"},
	}
}

func (t *SendRecommendation) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"status": {Type: "string"}},
		Required:   []string{"status"},
	}
}

// Run accepts the payload as delivered once the required fields are present.
func (t *SendRecommendation) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	if _, err := DecodeRecommendation(input); err != nil {
		return nil, err
	}
	return map[string]any{"status": "delivered"}, nil
}

// DecodeRecommendation converts a send_recommendation payload into a
// Recommendation, failing when a required field is absent.
func DecodeRecommendation(input map[string]any) (menuagent.Recommendation, error) {
	for _, key := range []string{"meal_type", "recommendations", "summary"} {
		if _, ok := input[key]; !ok {
			return menuagent.Recommendation{}, fmt.Errorf("missing required field %q", key)
		}
	}

	b, err := json.Marshal(input)
	if err != nil {
		return menuagent.Recommendation{}, fmt.Errorf("encode recommendation: %w", err)
	}
	var rec menuagent.Recommendation
	if err := json.Unmarshal(b, &rec); err != nil {
		return menuagent.Recommendation{}, fmt.Errorf("decode recommendation: %w", err)
	}
	if rec.Recommendations == nil {
		rec.Recommendations = []menuagent.RecommendedItem{}
	}
	for i, item := range rec.Recommendations {
		if item.Name == "" || item.Reason == "" {
			return menuagent.Recommendation{}, fmt.Errorf("recommendation %d: name and reason are required", i)
		}
	}
	return rec, nil
}
