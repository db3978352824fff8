package slack_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"menuagent"
	"menuagent/coordinator"
	"menuagent/slack"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockDoer struct {
	resp   *http.Response
	err    error
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return m.resp, m.err
}

func ok() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}
}

func TestNewClient(t *testing.T) {
	webhook := "http://slack.com/webhook"
	client := slack.NewClient(webhook, &mockDoer{})
	must.NotNil(t, client, "expected non-nil client")
}

func TestPostMessage(t *testing.T) {
	tests := []struct {
		name    string
		doFunc  func(req *http.Request) (*http.Response, error)
		wantErr error
	}{
		{
			name: "success",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return ok(), nil
			},
			wantErr: nil,
		},
		{
			name: "failure status",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: io.NopCloser(bytes.NewBufferString("bad request"))}, nil
			},
			wantErr: fmt.Errorf("failed to post message: 400 Bad Request"),
		},
		{
			name: "do error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network error")
			},
			wantErr: fmt.Errorf("network error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: tt.doFunc})
			err := client.PostMessage(context.Background(), "#dining", "Hello, world!")
			should.Equal(t, tt.wantErr, err)
		})
	}
}

func TestPostResult(t *testing.T) {
	var payload map[string]any
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		should.Equal(t, "application/json", req.Header.Get("Content-Type"))
		body, err := io.ReadAll(req.Body)
		must.NoError(t, err)
		must.NoError(t, json.Unmarshal(body, &payload))
		return ok(), nil
	}}

	client := slack.NewClient("http://example.com/webhook", doer)
	err := client.PostResult(context.Background(), "#dining", coordinator.Result{Meal: "dinner", Text: "Try the soup."})
	must.NoError(t, err)

	should.Equal(t, "#dining", payload["channel"])
	should.Equal(t, "*Dinner recommendations*\nTry the soup.", payload["text"])
	should.Equal(t, true, payload["mrkdwn"])
}

func TestFormatResult(t *testing.T) {
	cal, protein := 350.0, 30.5

	tests := []struct {
		name string
		res  coordinator.Result
		want string
	}{
		{
			name: "free text",
			res:  coordinator.Result{Meal: "lunch", Date: "2026-10-18", Text: "Get the chicken."},
			want: "*Lunch recommendations* (2026-10-18)\nGet the chicken.",
		},
		{
			name: "structured",
			res: coordinator.Result{
				Meal: "lunch",
				Text: "Enjoy!",
				Recommendation: &menuagent.Recommendation{
					MealType: "lunch",
					Recommendations: []menuagent.RecommendedItem{
						{Name: "Grilled Chicken", DiningHall: "North", Station: "Grill", Reason: "Lean protein.", Calories: &cal, ProteinG: &protein},
						{Name: "Garden Salad", Reason: "Light side."},
					},
					Summary: "Chicken plus a salad.",
				},
			},
			want: "*Lunch recommendations*\n" +
				"1. *Grilled Chicken* (North, Grill): 350 cal | 30.5g protein\n    Lean protein.\n" +
				"2. *Garden Salad*\n    Light side.\n" +
				"\n_Chicken plus a salad._\nEnjoy!",
		},
		{
			name: "closing text equal to summary is not repeated",
			res: coordinator.Result{
				Text:           "Same.",
				Recommendation: &menuagent.Recommendation{Recommendations: []menuagent.RecommendedItem{}, Summary: "Same."},
			},
			want: "*Meal recommendations*\n\n_Same._",
		},
		{
			name: "multibyte meal title",
			res:  coordinator.Result{Meal: "éte brunch", Text: "Crêpes."},
			want: "*Éte brunch recommendations*\nCrêpes.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			should.Equal(t, tt.want, slack.FormatResult(tt.res))
		})
	}
}
