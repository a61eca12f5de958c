package assess

import (
	"regexp"
	"strconv"
	"strings"
)

// Assessment is the strict six-field outcome of normalizing generative
// model output. Every field is always non-empty; that invariant is the
// correctness guarantee downstream automation relies on.
type Assessment struct {
	RiskScore      string `json:"risk_score"`
	Mitre          string `json:"mitre"`
	Behavior       string `json:"behavior"`
	Evidence       string `json:"evidence"`
	IRAction       string `json:"ir_action"`
	Recommendation string `json:"recommendation"`
}

// Per-field fallbacks applied when a label is missing or its value is
// unusable.
const (
	FallbackRiskScore      = "3"
	FallbackMitre          = "Unknown Technique"
	FallbackBehavior       = "Suspicious activity detected."
	FallbackEvidence       = "Logs, authentication events, system activity."
	FallbackIRAction       = "Monitor"
	FallbackRecommendation = "Monitor – insufficient model output."
)

// Sentinel marks a field value that never resolved; records carrying it are
// excluded from persistence-backed training and prediction.
const Sentinel = "N/A"

var (
	// Strips list bullets and "1." / "2)" style numbering, but never a bare
	// value such as a lone risk score digit.
	leadingBulletRe = regexp.MustCompile(`^(?:[-•*\s]+|\d+[.)]\s+)+`)
	firstIntRe      = regexp.MustCompile(`\d+`)
)

// Normalize parses semi-structured model output into an Assessment. Missing
// labels are distinguishable from empty values and feed per-field fallbacks;
// the result always has all six fields populated, however malformed the
// input. Normalizing already-normalized output in the same label format
// yields the same assessment.
func Normalize(raw string) Assessment {
	risk, riskOK := extractField(LabelRiskScore, raw)
	mitre, mitreOK := extractField(LabelMitre, raw)
	behavior, behaviorOK := extractField(LabelBehavior, raw)
	evidence, evidenceOK := extractField(LabelEvidence, raw)
	irAction, irOK := extractField(LabelIRAction, raw)
	rec, recOK := extractField(LabelRecommendation, raw)

	return Assessment{
		RiskScore:      normalizeRiskScore(risk, riskOK),
		Mitre:          normalizeMitre(mitre, mitreOK),
		Behavior:       orFallback(behavior, behaviorOK, FallbackBehavior),
		Evidence:       orFallback(evidence, evidenceOK, FallbackEvidence),
		IRAction:       orFallback(irAction, irOK, FallbackIRAction),
		Recommendation: orFallback(rec, recOK, FallbackRecommendation),
	}
}

// Fallback returns the all-fallback assessment used when the generative
// model is unreachable.
func Fallback() Assessment {
	return Normalize("")
}

// HasSentinel reports whether any field still carries the unresolved-field
// marker. Normalization should make this impossible; callers double-check
// before persistence and training use.
func (a Assessment) HasSentinel() bool {
	for _, v := range []string{a.RiskScore, a.Mitre, a.Behavior, a.Evidence, a.IRAction, a.Recommendation} {
		if v == Sentinel || v == "" {
			return true
		}
	}
	return false
}

// extractField returns the text following the label up to the next
// recognized label or line end. The bool reports whether the label was found
// with a usable value; absence is distinct from an empty string.
func extractField(label, text string) (string, bool) {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(label) + `[ \t]*(.+)`)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	value := strings.TrimSpace(m[1])
	value = leadingBulletRe.ReplaceAllString(value, "")
	value = strings.TrimSpace(value)

	// Stop at the next recognized label if the model ran fields together.
	lower := strings.ToLower(value)
	for _, stop := range labels {
		if strings.EqualFold(stop, label) {
			continue
		}
		if i := strings.Index(lower, strings.ToLower(stop)); i >= 0 {
			value = value[:i]
			lower = lower[:i]
		}
	}

	value = strings.TrimRight(strings.TrimSpace(value), " .,-")
	if value == "" {
		return "", false
	}
	return value, true
}

// normalizeRiskScore extracts the first integer substring and keeps it only
// when it falls in [1,10]; everything else becomes the fallback "3". The
// final value is stored in string form.
func normalizeRiskScore(value string, ok bool) string {
	if !ok {
		return FallbackRiskScore
	}
	digits := firstIntRe.FindString(value)
	if digits == "" {
		return FallbackRiskScore
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > 10 {
		return FallbackRiskScore
	}
	return strconv.Itoa(n)
}

func normalizeMitre(value string, ok bool) string {
	if !ok || len(value) < 3 {
		return FallbackMitre
	}
	return value
}

func orFallback(value string, ok bool, fallback string) string {
	if !ok {
		return fallback
	}
	return value
}
