package assess

import (
	"fmt"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/mitre"
	"github.com/linnemanlabs/argus/internal/reputation"
)

// Defaults substituted when an enrichment field is absent. The prompt never
// shows the model an empty field.
const (
	defaultTactic     = "Unknown Tactic"
	defaultTechnique  = "Unknown Technique"
	defaultConfidence = 40
	defaultVendors    = "N/A"
)

// CompilePrompt renders the alert and its enrichment into the fixed
// instruction for the generative model. Rendering is deterministic; the only
// branching is default substitution for absent fields.
func CompilePrompt(al alert.Alert, tech mitre.Match, rep reputation.Record) string {
	techID := tech.ID
	if techID == "" {
		techID = "N/A"
	}
	techName := tech.Name
	if techName == "" {
		techName = defaultTechnique
	}
	tactic := tech.Tactic
	if tactic == "" {
		tactic = defaultTactic
	}
	confidence := tech.Confidence
	if confidence == 0 {
		confidence = defaultConfidence
	}
	vendors := rep.MaliciousVendorsCount
	if vendors == "" {
		vendors = defaultVendors
	}

	return fmt.Sprintf(`You are a Senior SOC Level 1 Cybersecurity Analyst specializing in rapid alert triage, behavioral threat analysis, and intelligence-driven decision-making.

Your primary responsibility is to analyze this alert based on its context.
MITRE ATT&CK and VirusTotal data are provided only as optional enrichment:
- Use them only if they logically match the alert behavior.
- If they do not clearly apply, ignore them completely.
- Never force irrelevant or misleading intelligence into your analysis.

All final conclusions must be accurate, concise, SOC-ready, and must fill every required field with meaningful content.

IMPORTANT RULES:
- Output MUST contain ONLY the 6 required fields listed below.
- No extra words, no explanations, no markdown.
- Keep answers short, clear, and SOC-friendly.
- DO NOT repeat the alert description.
- DO NOT leave any field empty or N/A.
- Use the MITRE + VirusTotal data logically to produce the best analysis.

========================
ALERT CONTEXT
========================
Description: %s
User: %s
Source IP: %s
Location: %s

========================
MITRE ATT&CK (AI-usable)
========================
Technique ID: %s
Technique Name: %s
Threat Impact: %s
AI Confidence: %d%%

========================
VIRUSTOTAL (AI-usable)
========================
Malicious Vendors: %s
Community Score: %d
Malicious (Red Flags): %d
Suspicious (Yellow Flags): %d
Clean (Green Flags): %d

========================
REQUIRED OUTPUT FORMAT
========================
%s <1-10 ONLY>
%s <ID + Name>
%s <short clear behavior>
%s <list of evidence>
%s <specific SOC action>
%s <Ignore / Monitor / Escalate + reason>`,
		al.Description, al.Username, al.SourceIP, al.Location,
		techID, techName, tactic, confidence,
		vendors, rep.CommunityScore, rep.Malicious, rep.Suspicious, rep.Clean,
		LabelRiskScore, LabelMitre, LabelBehavior, LabelEvidence, LabelIRAction, LabelRecommendation,
	)
}
