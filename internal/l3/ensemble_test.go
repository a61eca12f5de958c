package l3

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/assess"
	"github.com/linnemanlabs/argus/internal/history"
)

// testArtifact builds a tiny hand-computed artifact. Columns: failed,
// login, script, "failed login".
func testArtifact() Artifact {
	return Artifact{
		Vectorizer: Vectorizer{
			Vocabulary: map[string]int{
				"failed":       0,
				"login":        1,
				"script":       2,
				"failed login": 3,
			},
			IDF:      []float64{1, 1, 1, 2},
			NgramMin: 1,
			NgramMax: 2,
		},
		RiskModel: LinearModel{
			Classes:   []string{"8", "2"},
			Coef:      [][]float64{{1, 1, 0, 1}, {0, 0, 1, 0}},
			Intercept: []float64{0, 0},
		},
		TechniqueModel: LinearModel{
			Classes:   []string{"0", "1"},
			Coef:      [][]float64{{1, 1, 0, 1}, {0, 0, 1, 0}},
			Intercept: []float64{0, 0},
		},
		EscalationModel: LinearModel{
			Classes:   []string{"2", "0"},
			Coef:      [][]float64{{1, 1, 0, 1}, {0, 0, 1, 0}},
			Intercept: []float64{0, 0},
		},
		Centroids: [][]float64{
			{0.41, 0.41, 0, 0.82},
			{0, 0, 1, 0},
		},
		TechniqueLabels: []string{"T1110", "T1059.001"},
	}
}

func testEnsemble(t *testing.T) *Ensemble {
	t.Helper()
	b, err := json.Marshal(testArtifact())
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	e, err := LoadBytes(b)
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	return e
}

func wellFormedAssessment() assess.Assessment {
	return assess.Assessment{
		RiskScore:      "8",
		Mitre:          "T1110 Brute Force",
		Behavior:       "Repeated failed login attempts from one host.",
		Evidence:       "Authentication logs.",
		IRAction:       "Block",
		Recommendation: "Block the source.",
	}
}

func TestPredict_BruteForceText(t *testing.T) {
	t.Parallel()

	e := testEnsemble(t)

	p, err := e.Predict(
		alert.Alert{Description: "Failed login attempts detected"},
		wellFormedAssessment(),
	)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if p.PredictedRisk != 8 {
		t.Errorf("risk = %d, want 8", p.PredictedRisk)
	}
	if p.PredictedMitre != "T1110" {
		t.Errorf("mitre = %q, want T1110", p.PredictedMitre)
	}
	if p.EscalationLevel != 2 {
		t.Errorf("escalation = %d, want 2", p.EscalationLevel)
	}
	if p.Cluster != 0 {
		t.Errorf("cluster = %d, want 0", p.Cluster)
	}
	if p.Insight == "" {
		t.Error("expected non-empty insight")
	}
}

func TestPredict_ScriptText(t *testing.T) {
	t.Parallel()

	e := testEnsemble(t)
	as := wellFormedAssessment()
	as.Behavior = "Script interpreter spawned."
	as.Evidence = "Process telemetry."

	p, err := e.Predict(alert.Alert{Description: "Suspicious script execution"}, as)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if p.PredictedRisk != 2 {
		t.Errorf("risk = %d, want 2", p.PredictedRisk)
	}
	if p.PredictedMitre != "T1059.001" {
		t.Errorf("mitre = %q, want T1059.001", p.PredictedMitre)
	}
	if p.EscalationLevel != 0 {
		t.Errorf("escalation = %d, want 0", p.EscalationLevel)
	}
	if p.Cluster != 1 {
		t.Errorf("cluster = %d, want 1", p.Cluster)
	}
}

func TestPredict_RangesHold(t *testing.T) {
	t.Parallel()

	e := testEnsemble(t)

	for _, desc := range []string{
		"Failed login burst",
		"script ran",
		"completely unrelated words here",
		"",
	} {
		p, err := e.Predict(alert.Alert{Description: desc}, wellFormedAssessment())
		if err != nil {
			t.Fatalf("Predict(%q): %v", desc, err)
		}
		if p.Cluster < 0 || p.Cluster >= e.ClusterCount() {
			t.Errorf("Predict(%q) cluster = %d, want in [0, %d)", desc, p.Cluster, e.ClusterCount())
		}
		if p.EscalationLevel < 0 || p.EscalationLevel > 2 {
			t.Errorf("Predict(%q) escalation = %d, want in {0,1,2}", desc, p.EscalationLevel)
		}
	}
}

func TestPredict_SentinelRejected(t *testing.T) {
	t.Parallel()

	e := testEnsemble(t)
	as := wellFormedAssessment()
	as.Behavior = assess.Sentinel

	if _, err := e.Predict(alert.Alert{Description: "failed login"}, as); err == nil {
		t.Fatal("expected error for sentinel assessment")
	}
}

func TestVectorize_BigramsAndUnitNorm(t *testing.T) {
	t.Parallel()

	e := testEnsemble(t)
	x := e.vectorize("Failed login attempts detected")

	// "failed" and "login" hit as unigrams, "failed login" as a bigram
	// with idf 2; "attempts" and "detected" are out of vocabulary.
	if x[2] != 0 {
		t.Errorf("script column = %v, want 0", x[2])
	}
	if x[3] == 0 {
		t.Error("bigram column = 0, want counted")
	}

	var norm float64
	for _, v := range x {
		norm += v * v
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-9 {
		t.Errorf("norm = %v, want 1", math.Sqrt(norm))
	}
}

func TestVectorize_EmptyTextIsZero(t *testing.T) {
	t.Parallel()

	e := testEnsemble(t)
	for _, v := range e.vectorize("") {
		if v != 0 {
			t.Fatalf("expected zero vector for empty text, got %v", v)
		}
	}
}

func TestLoadBytes_RejectsBadShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Artifact)
	}{
		{"coef row too short", func(a *Artifact) { a.RiskModel.Coef[0] = []float64{1} }},
		{"intercept count mismatch", func(a *Artifact) { a.EscalationModel.Intercept = []float64{0} }},
		{"vocabulary index out of range", func(a *Artifact) { a.Vectorizer.Vocabulary["failed"] = 99 }},
		{"no centroids", func(a *Artifact) { a.Centroids = nil }},
		{"bad ngram range", func(a *Artifact) { a.Vectorizer.NgramMax = 0 }},
		{"no technique labels", func(a *Artifact) { a.TechniqueLabels = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			art := testArtifact()
			tt.mutate(&art)

			b, err := json.Marshal(art)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if _, err := LoadBytes(b); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEscalationLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		risk int
		want int
	}{
		{1, 0}, {3, 0}, {4, 1}, {6, 1}, {7, 2}, {10, 2},
	}
	for _, tt := range tests {
		if got := EscalationLabel(tt.risk); got != tt.want {
			t.Errorf("EscalationLabel(%d) = %d, want %d", tt.risk, got, tt.want)
		}
	}
}

func TestCleanTechnique(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"T1110 Brute Force", "T1110"},
		{"T1059.001", "T1059.001"},
		{"  T1078   Valid Accounts  ", "T1078"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanTechnique(tt.in); got != tt.want {
			t.Errorf("CleanTechnique(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildTrainingSet(t *testing.T) {
	t.Parallel()

	good := wellFormedAssessment()
	sentinel := wellFormedAssessment()
	sentinel.Evidence = assess.Sentinel
	badRisk := wellFormedAssessment()
	badRisk.RiskScore = "high"

	recs := []history.Record{
		{Alert: alert.Alert{Description: "failed login"}, Assessment: good},
		{Alert: alert.Alert{Description: "skipped"}, Assessment: sentinel},
		{Alert: alert.Alert{Description: "also skipped"}, Assessment: badRisk},
	}

	rows, dropped := BuildTrainingSet(recs)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}

	row := rows[0]
	if row.Risk != 8 {
		t.Errorf("risk = %d, want 8", row.Risk)
	}
	if row.Technique != "T1110" {
		t.Errorf("technique = %q, want T1110", row.Technique)
	}
	if row.Escalation != 2 {
		t.Errorf("escalation = %d, want 2", row.Escalation)
	}
	if row.Text == "" {
		t.Error("expected non-empty text feature")
	}
}
