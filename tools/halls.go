package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"menuagent"
	"menuagent/retrieval"
)

const (
	defaultHallCount = 4
	maxHallCount     = 10
)

type RankDiningHalls struct {
	index   *retrieval.Index
	profile menuagent.Profile
}

func NewRankDiningHalls(index *retrieval.Index, profile menuagent.Profile) *RankDiningHalls {
	return &RankDiningHalls{index: index, profile: profile}
}

func (t *RankDiningHalls) Name() string  { return KindRankDiningHalls.String() }
func (t *RankDiningHalls) Title() string { return "Rank Dining Halls" }
func (t *RankDiningHalls) Description() string {
	return "Rank dining halls by how well today's items match the user's goal, " +
		"preferences and dietary restrictions. Use this to decide where to eat."
}

func (t *RankDiningHalls) InputSchema() *jsonschema.Schema {
	minN, maxN := 1.0, float64(maxHallCount)
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"top_n": {
				Type:        "integer",
				Description: "Number of halls to return (default 4)",
				Minimum:     &minN,
				Maximum:     &maxN,
			},
		},
	}
}

func (t *RankDiningHalls) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"halls": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"hall":  {Type: "string"},
						"score": {Type: "number"},
					},
				},
			},
		},
		Required: []string{"halls"},
	}
}

func (t *RankDiningHalls) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	n := min(intArg(input, "top_n", defaultHallCount), maxHallCount)
	if n <= 0 {
		n = defaultHallCount
	}

	scores := retrieval.ScoreHalls(retrieval.HallQuery{
		Goal:         t.profile.Goal,
		Preferences:  t.profile.Preferences,
		Restrictions: t.profile.RestrictionText(),
	}, t.index, n)
	if scores == nil {
		scores = []retrieval.HallScore{}
	}
	return toMap(struct {
		Halls []retrieval.HallScore `json:"halls"`
	}{scores})
}
