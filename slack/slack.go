// Package slack delivers finished recommendations to a Slack incoming
// webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"menuagent"
	"menuagent/catalog"
	"menuagent/coordinator"
)

type Client struct {
	webhookURL string
	httpClient menuagent.HTTPClient
}

func NewClient(webhookURL string, httpClient menuagent.HTTPClient) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
		"mrkdwn":  true,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

// PostResult formats a run result and posts it to channel.
func (c *Client) PostResult(ctx context.Context, channel string, res coordinator.Result) error {
	return c.PostMessage(ctx, channel, FormatResult(res))
}

// FormatResult renders a run result as Slack mrkdwn. Structured results
// list each pick; free-text results are posted as they are.
func FormatResult(res coordinator.Result) string {
	var b strings.Builder

	title := res.Meal
	if title == "" {
		title = "meal"
	}
	fmt.Fprintf(&b, "*%s recommendations*", capitalize(title))
	if res.Date != "" {
		fmt.Fprintf(&b, " (%s)", res.Date)
	}
	b.WriteString("\n")

	rec := res.Recommendation
	if rec == nil {
		b.WriteString(res.Text)
		return b.String()
	}

	for i, item := range rec.Recommendations {
		fmt.Fprintf(&b, "%d. *%s*", i+1, item.Name)
		if where := location(item); where != "" {
			fmt.Fprintf(&b, " (%s)", where)
		}
		if stats := nutrition(item); stats != "" {
			fmt.Fprintf(&b, ": %s", stats)
		}
		if item.Reason != "" {
			fmt.Fprintf(&b, "\n    %s", item.Reason)
		}
		b.WriteString("\n")
	}
	if rec.Summary != "" {
		fmt.Fprintf(&b, "\n_%s_", rec.Summary)
	}
	if closing := strings.TrimSpace(res.Text); closing != "" && closing != rec.Summary && closing != coordinator.NoResponseMarker {
		fmt.Fprintf(&b, "\n%s", closing)
	}
	return strings.TrimRight(b.String(), "\n")
}

func location(item menuagent.RecommendedItem) string {
	parts := make([]string, 0, 2)
	if item.DiningHall != "" {
		parts = append(parts, item.DiningHall)
	}
	if item.Station != "" {
		parts = append(parts, item.Station)
	}
	return strings.Join(parts, ", ")
}

func nutrition(item menuagent.RecommendedItem) string {
	var parts []string
	if item.Calories != nil {
		parts = append(parts, catalog.FormatNumber(*item.Calories)+" cal")
	}
	if item.ProteinG != nil {
		parts = append(parts, catalog.FormatNumber(*item.ProteinG)+"g protein")
	}
	return strings.Join(parts, " | ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
