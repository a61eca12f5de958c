package l3

import (
	"encoding/json"
	"fmt"
	"os"
)

// Vectorizer is a frozen TF-IDF text vectorizer: a fixed vocabulary mapping
// n-gram terms to column indices plus per-column inverse document
// frequencies.
type Vectorizer struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	NgramMin   int            `json:"ngram_min"`
	NgramMax   int            `json:"ngram_max"`
}

// LinearModel is a frozen one-vs-rest linear classifier. Coef is one row of
// weights per class; Classes holds the label emitted for each row.
type LinearModel struct {
	Classes   []string    `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

// Artifact is the single JSON document holding every frozen predictor.
// Technique classes are integer codes decoded through TechniqueLabels.
type Artifact struct {
	Vectorizer      Vectorizer  `json:"vectorizer"`
	RiskModel       LinearModel `json:"risk_model"`
	TechniqueModel  LinearModel `json:"technique_model"`
	EscalationModel LinearModel `json:"escalation_model"`
	Centroids       [][]float64 `json:"centroids"`
	TechniqueLabels []string    `json:"technique_labels"`
}

func loadArtifact(b []byte) (Artifact, error) {
	var art Artifact
	if err := json.Unmarshal(b, &art); err != nil {
		return Artifact{}, fmt.Errorf("l3: parse artifact: %w", err)
	}
	if err := art.validate(); err != nil {
		return Artifact{}, fmt.Errorf("l3: invalid artifact: %w", err)
	}
	return art, nil
}

func loadArtifactFile(path string) (Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("l3: read artifact: %w", err)
	}
	return loadArtifact(b)
}

func (a Artifact) validate() error {
	dims := len(a.Vectorizer.IDF)
	if dims == 0 {
		return fmt.Errorf("vectorizer has no idf weights")
	}
	if len(a.Vectorizer.Vocabulary) == 0 {
		return fmt.Errorf("vectorizer has empty vocabulary")
	}
	if a.Vectorizer.NgramMin < 1 || a.Vectorizer.NgramMax < a.Vectorizer.NgramMin {
		return fmt.Errorf("bad ngram range [%d, %d]", a.Vectorizer.NgramMin, a.Vectorizer.NgramMax)
	}
	for term, idx := range a.Vectorizer.Vocabulary {
		if idx < 0 || idx >= dims {
			return fmt.Errorf("vocabulary term %q maps to column %d outside [0, %d)", term, idx, dims)
		}
	}

	for name, m := range map[string]LinearModel{
		"risk":       a.RiskModel,
		"technique":  a.TechniqueModel,
		"escalation": a.EscalationModel,
	} {
		if err := m.validate(dims); err != nil {
			return fmt.Errorf("%s model: %w", name, err)
		}
	}

	if len(a.Centroids) == 0 {
		return fmt.Errorf("no cluster centroids")
	}
	for i, c := range a.Centroids {
		if len(c) != dims {
			return fmt.Errorf("centroid %d has %d dims, want %d", i, len(c), dims)
		}
	}
	if len(a.TechniqueLabels) == 0 {
		return fmt.Errorf("no technique labels")
	}
	return nil
}

func (m LinearModel) validate(dims int) error {
	if len(m.Classes) == 0 {
		return fmt.Errorf("no classes")
	}
	if len(m.Coef) != len(m.Classes) {
		return fmt.Errorf("%d coef rows for %d classes", len(m.Coef), len(m.Classes))
	}
	if len(m.Intercept) != len(m.Classes) {
		return fmt.Errorf("%d intercepts for %d classes", len(m.Intercept), len(m.Classes))
	}
	for i, row := range m.Coef {
		if len(row) != dims {
			return fmt.Errorf("coef row %d has %d dims, want %d", i, len(row), dims)
		}
	}
	return nil
}
