// Package l3 runs the frozen secondary classifier ensemble over pipeline
// output: a shared TF-IDF vectorizer feeding independent risk, technique,
// and escalation classifiers plus a nearest-centroid cluster assignment.
// Artifacts are trained offline and loaded once into an immutable handle.
package l3

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/assess"
)

// Prediction is the ensemble's verdict for one processed alert.
type Prediction struct {
	PredictedRisk   int    `json:"predicted_risk"`
	PredictedMitre  string `json:"predicted_mitre"`
	EscalationLevel int    `json:"escalation_level"`
	Cluster         int    `json:"cluster"`
	Insight         string `json:"insight"`
}

// Ensemble is an immutable handle over the frozen predictors. Safe for
// concurrent use; construct once at startup and pass it to whatever needs
// predictions.
type Ensemble struct {
	art Artifact
}

// Load reads and validates an artifact file.
func Load(path string) (*Ensemble, error) {
	art, err := loadArtifactFile(path)
	if err != nil {
		return nil, err
	}
	return &Ensemble{art: art}, nil
}

// LoadBytes builds an ensemble from an in-memory artifact document.
func LoadBytes(b []byte) (*Ensemble, error) {
	art, err := loadArtifact(b)
	if err != nil {
		return nil, err
	}
	return &Ensemble{art: art}, nil
}

// ClusterCount returns the number of trained cluster centroids. Every
// predicted cluster id is in [0, ClusterCount).
func (e *Ensemble) ClusterCount() int {
	return len(e.art.Centroids)
}

// Predict classifies one alert and its normalized assessment. Assessments
// still carrying the missing-field sentinel are rejected; they were never
// part of the training distribution.
func (e *Ensemble) Predict(al alert.Alert, as assess.Assessment) (Prediction, error) {
	if as.HasSentinel() {
		return Prediction{}, fmt.Errorf("l3: assessment contains %q sentinel fields", assess.Sentinel)
	}

	text := al.Description + " " + as.Behavior + " " + as.Evidence
	x := e.vectorize(text)

	risk, err := e.predictRisk(x)
	if err != nil {
		return Prediction{}, err
	}
	technique, err := e.predictTechnique(x)
	if err != nil {
		return Prediction{}, err
	}
	escalation, err := e.predictEscalation(x)
	if err != nil {
		return Prediction{}, err
	}
	cluster := e.nearestCentroid(x)

	return Prediction{
		PredictedRisk:   risk,
		PredictedMitre:  technique,
		EscalationLevel: escalation,
		Cluster:         cluster,
		Insight: fmt.Sprintf(
			"This alert resembles cluster pattern #%d based on historical incident grouping.",
			cluster,
		),
	}, nil
}

// tokenRe matches word tokens of two or more characters, the same shape the
// vectorizer was trained with.
var tokenRe = regexp.MustCompile(`\w\w+`)

// vectorize maps text to a unit-length TF-IDF row over the frozen
// vocabulary. Out-of-vocabulary terms are dropped.
func (e *Ensemble) vectorize(text string) []float64 {
	v := e.art.Vectorizer
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)

	x := make([]float64, len(v.IDF))
	for n := v.NgramMin; n <= v.NgramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			term := strings.Join(tokens[i:i+n], " ")
			if col, ok := v.Vocabulary[term]; ok {
				x[col]++
			}
		}
	}

	floats.Mul(x, v.IDF)

	if norm := floats.Norm(x, 2); norm > 0 {
		floats.Scale(1/norm, x)
	}
	return x
}

func (m LinearModel) decide(x []float64) string {
	scores := make([]float64, len(m.Classes))
	for i, row := range m.Coef {
		scores[i] = floats.Dot(row, x) + m.Intercept[i]
	}
	return m.Classes[floats.MaxIdx(scores)]
}

func (e *Ensemble) predictRisk(x []float64) (int, error) {
	class := e.art.RiskModel.decide(x)
	risk, err := strconv.Atoi(class)
	if err != nil {
		return 0, fmt.Errorf("l3: risk model emitted non-numeric class %q", class)
	}
	return risk, nil
}

func (e *Ensemble) predictTechnique(x []float64) (string, error) {
	class := e.art.TechniqueModel.decide(x)
	code, err := strconv.Atoi(class)
	if err != nil || code < 0 || code >= len(e.art.TechniqueLabels) {
		return "", fmt.Errorf("l3: technique model emitted undecodable class %q", class)
	}
	return e.art.TechniqueLabels[code], nil
}

func (e *Ensemble) predictEscalation(x []float64) (int, error) {
	class := e.art.EscalationModel.decide(x)
	level, err := strconv.Atoi(class)
	if err != nil || level < 0 || level > 2 {
		return 0, fmt.Errorf("l3: escalation model emitted out-of-range class %q", class)
	}
	return level, nil
}

func (e *Ensemble) nearestCentroid(x []float64) int {
	best := 0
	bestDist := floats.Distance(x, e.art.Centroids[0], 2)
	for i := 1; i < len(e.art.Centroids); i++ {
		if d := floats.Distance(x, e.art.Centroids[i], 2); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
