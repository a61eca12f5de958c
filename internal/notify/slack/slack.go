// Package slack sends high-risk alert notifications to Slack via incoming
// webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/linnemanlabs/argus/internal/history"
)

const (
	maxRecommendationLen = 3000
	httpTimeout          = 10 * time.Second
)

// Notifier sends processed alert records to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a record to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, rec *history.Record) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(rec)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(rec *history.Record) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(rec),
			{"type": "divider"},
			fieldsBlock(rec),
			{"type": "divider"},
			recommendationBlock(rec),
			{"type": "divider"},
			contextBlock(rec),
		},
	}
}

func headerBlock(rec *history.Record) map[string]any {
	emoji := riskEmoji(rec.Assessment.RiskScore)
	text := fmt.Sprintf("%s High-Risk Alert: %s", emoji, rec.Alert.Description)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(rec *history.Record) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Risk Score:* %s", rec.Assessment.RiskScore),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Technique:* %s", rec.Assessment.Mitre),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Source IP:* %s", rec.Alert.SourceIP),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Vendors:* %s", rec.Reputation.MaliciousVendorsCount),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*User:* %s", rec.Alert.Username),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*IR Action:* %s", rec.Assessment.IRAction),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func recommendationBlock(rec *history.Record) map[string]any {
	text := truncate(rec.Assessment.Recommendation, maxRecommendationLen)
	if text == "" {
		text = "_No recommendation available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Recommendation*\n\n%s", text),
		},
	}
}

func contextBlock(rec *history.Record) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("argus • record %s • %s", rec.ID, rec.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func riskEmoji(riskScore string) string {
	risk, err := strconv.Atoi(riskScore)
	if err != nil {
		return "\U0001f7e1" // yellow circle
	}
	switch {
	case risk >= 9:
		return "\U0001f534" // red circle
	case risk >= 7:
		return "\U0001f7e0" // orange circle
	default:
		return "\U0001f7e1" // yellow circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
