// Package assess renders the analyst prompt for the generative model and
// parses its output into the strict six-field assessment.
package assess

// The six field labels are the contract between the prompt compiler and the
// response normalizer: the prompt instructs the model to emit exactly these
// labels and the parser scans for exactly these labels.
const (
	LabelRiskScore      = "Risk Score:"
	LabelMitre          = "MITRE ATT&CK Technique:"
	LabelBehavior       = "Behavioral Pattern:"
	LabelEvidence       = "Evidence Needed:"
	LabelIRAction       = "IR Action:"
	LabelRecommendation = "AI Recommendation:"
)

// labels lists all six in output order, used as stop markers when scanning.
var labels = []string{
	LabelRiskScore,
	LabelMitre,
	LabelBehavior,
	LabelEvidence,
	LabelIRAction,
	LabelRecommendation,
}
