// Package llm defines the generative model boundary for the triage pipeline.
package llm

import "context"

// Request carries one prompt with its fixed generation parameters. Output
// length is bounded and temperature is kept low so assessments stay close to
// deterministic for the same inputs.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider is the interface for any generative model backend.
type Provider interface {
	Generate(ctx context.Context, req *Request) (string, error)
}
