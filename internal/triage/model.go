package triage

import "github.com/linnemanlabs/argus/internal/history"

// RunResult is the outcome of one alert's pipeline run.
type RunResult struct {
	// Record is the persisted history record, nil when Skipped.
	Record *history.Record

	// Skipped means the run completed but nothing was persisted, with
	// Reason explaining why.
	Skipped bool
	Reason  string

	// Fallback means the model was unavailable and the assessment is
	// built entirely from per-field fallbacks.
	Fallback bool
}

// BatchSummary reports per-item outcomes of a batch run.
type BatchSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}
