// Package triage provides the business boundary for Argus's alert pipeline.
// It defines the Engine (sequential enrich, prompt, model, normalize,
// persist stages), the Service (batch isolation, submission), and the
// Prometheus metrics for both.
package triage
