package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/assess"
	"github.com/linnemanlabs/argus/internal/history"
	"github.com/linnemanlabs/argus/internal/reputation"
)

func testRecord() *history.Record {
	return &history.Record{
		ID: "01JN123",
		Alert: alert.Alert{
			Description: "Multiple failed SSH login attempts",
			Username:    "admin1",
			SourceIP:    "185.23.91.10",
			Location:    "Riyadh Datacenter",
		},
		Reputation: reputation.Record{
			MaliciousVendorsCount: "12/80 vendors flagged",
		},
		Assessment: assess.Assessment{
			RiskScore:      "9",
			Mitre:          "T1110 Brute Force",
			Behavior:       "Credential brute forcing.",
			Evidence:       "Auth logs.",
			IRAction:       "Block",
			Recommendation: "Block the source IP.",
		},
		CreatedAt: time.Date(2026, 8, 31, 14, 23, 0, 0, time.UTC),
	}
}

func TestSend_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	if err := n.Send(context.Background(), testRecord()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, divider, fields, divider, recommendation, divider, context
	if len(blocks) != 7 {
		t.Errorf("blocks count = %d, want 7", len(blocks))
	}

	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "Multiple failed SSH login attempts") {
		t.Errorf("header text = %q, want alert description", headerText)
	}
	if !strings.Contains(headerText, "\U0001f534") {
		t.Error("header should contain red circle for risk 9")
	}
}

func TestSend_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("")
	if err := n.Send(context.Background(), testRecord()); err != nil {
		t.Fatalf("Send with empty URL should be no-op, got: %v", err)
	}
}

func TestSend_WebhookErrorSurfaces(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.Send(context.Background(), testRecord())
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error = %v, want status code mentioned", err)
	}
}

func TestRiskEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		risk string
		want string
	}{
		{"9", "\U0001f534"},
		{"10", "\U0001f534"},
		{"7", "\U0001f7e0"},
		{"3", "\U0001f7e1"},
		{"not-a-number", "\U0001f7e1"},
	}
	for _, tt := range tests {
		if got := riskEmoji(tt.risk); got != tt.want {
			t.Errorf("riskEmoji(%q) = %q, want %q", tt.risk, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", maxRecommendationLen+100)
	got := truncate(long, maxRecommendationLen)
	if len(got) != maxRecommendationLen {
		t.Errorf("len = %d, want %d", len(got), maxRecommendationLen)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("expected ellipsis suffix")
	}

	if truncate("short", maxRecommendationLen) != "short" {
		t.Error("short strings should pass through")
	}
}
