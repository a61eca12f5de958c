package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/assess"
	"github.com/linnemanlabs/argus/internal/enrich"
	"github.com/linnemanlabs/argus/internal/history"
	"github.com/linnemanlabs/argus/internal/history/filestore"
	"github.com/linnemanlabs/argus/internal/l3"
)

func TestRun_UnknownCommand(t *testing.T) {
	if err := run([]string{"bogus"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRun_NoCommand(t *testing.T) {
	if err := run(nil); err == nil {
		t.Fatal("expected error with no command")
	}
}

func TestExportTraining_WritesRows(t *testing.T) {
	dir := t.TempDir()
	historyFile := filepath.Join(dir, "history.json")
	outFile := filepath.Join(dir, "training.json")

	store := filestore.New(historyFile)
	rec := history.NewRecord(
		"01JNTEST",
		alert.Alert{Description: "Multiple failed SSH login attempts", SourceIP: "185.23.91.10"},
		enrich.Bundle{},
		assess.Assessment{
			RiskScore:      "8",
			Mitre:          "T1110 Brute Force",
			Behavior:       "Brute forcing.",
			Evidence:       "Auth logs.",
			IRAction:       "Block",
			Recommendation: "Block the IP.",
		},
		time.Now().UTC(),
	)
	if err := store.Append(context.Background(), rec); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	err := run([]string{"export-training", "-history-file", historyFile, "-out", outFile})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	b, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var rows []l3.TrainingRow
	if err := json.Unmarshal(b, &rows); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Technique != "T1110" || rows[0].Escalation != 2 {
		t.Errorf("row = %+v, want technique T1110 escalation 2", rows[0])
	}
}

func TestPredict_RequiresArtifact(t *testing.T) {
	if err := run([]string{"predict"}); err == nil {
		t.Fatal("expected error without -model-artifact")
	}
}

func TestAnalyze_RequiresAlertsFile(t *testing.T) {
	if err := run([]string{"analyze"}); err == nil {
		t.Fatal("expected error without -alerts-file")
	}
}
