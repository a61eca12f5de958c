// Package history defines the durable, append-only log of fully processed
// alert records and its storage backends.
package history

import (
	"context"
	"time"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/assess"
	"github.com/linnemanlabs/argus/internal/enrich"
	"github.com/linnemanlabs/argus/internal/mitre"
	"github.com/linnemanlabs/argus/internal/reputation"
)

// Record is one fully processed alert: the input, its enrichment, and the
// normalized assessment. Records are append-only and never mutated after
// write; ordering is append order.
type Record struct {
	ID         string            `json:"id"`
	Alert      alert.Alert       `json:"alert"`
	Technique  mitre.Match       `json:"technique"`
	Reputation reputation.Record `json:"reputation"`
	Assessment assess.Assessment `json:"assessment"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewRecord assembles a record from one pipeline run's outputs.
func NewRecord(id string, al alert.Alert, bundle enrich.Bundle, as assess.Assessment, at time.Time) *Record {
	return &Record{
		ID:         id,
		Alert:      al,
		Technique:  bundle.Technique,
		Reputation: bundle.Reputation,
		Assessment: as,
		CreatedAt:  at,
	}
}

// Store is the persistence interface for history records.
type Store interface {
	Append(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, bool, error)
	List(ctx context.Context) ([]Record, error)
}
