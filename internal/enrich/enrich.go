// Package enrich combines technique matching and reputation lookup into one
// enrichment bundle per alert.
package enrich

import (
	"context"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/mitre"
	"github.com/linnemanlabs/argus/internal/reputation"
)

// TechniqueMatcher maps a description to a catalog technique.
type TechniqueMatcher interface {
	Match(description string) mitre.Match
}

// ReputationLookup resolves an IP to a reputation record.
type ReputationLookup interface {
	Lookup(ctx context.Context, ip string) (reputation.Record, error)
}

// Bundle is the aggregated enrichment for one alert.
type Bundle struct {
	Technique  mitre.Match       `json:"technique"`
	Reputation reputation.Record `json:"reputation"`
}

// Aggregator composes the two enrichment sources. It adds no error handling
// of its own: a failure in either sub-call propagates and the caller decides
// retry or abort.
type Aggregator struct {
	matcher TechniqueMatcher
	lookup  ReputationLookup
}

// NewAggregator creates an aggregator over the given sources.
func NewAggregator(matcher TechniqueMatcher, lookup ReputationLookup) *Aggregator {
	return &Aggregator{matcher: matcher, lookup: lookup}
}

// Enrich runs both enrichment sources for one alert and returns their
// results unmodified.
func (a *Aggregator) Enrich(ctx context.Context, al alert.Alert) (Bundle, error) {
	technique := a.matcher.Match(al.Description)

	rep, err := a.lookup.Lookup(ctx, al.SourceIP)
	if err != nil {
		return Bundle{}, err
	}

	return Bundle{Technique: technique, Reputation: rep}, nil
}
