package l3

import (
	"strconv"
	"strings"

	"github.com/linnemanlabs/argus/internal/history"
)

// TrainingRow is one flattened history record ready for offline model
// fitting.
type TrainingRow struct {
	Text       string `json:"text"`
	Risk       int    `json:"risk"`
	Technique  string `json:"technique"`
	Escalation int    `json:"escalation"`
}

// BuildTrainingSet flattens history records into training rows. Records with
// sentinel assessment fields or an unparseable risk score are excluded; the
// second return value reports how many were dropped.
func BuildTrainingSet(recs []history.Record) (rows []TrainingRow, dropped int) {
	for _, rec := range recs {
		as := rec.Assessment
		if as.HasSentinel() {
			dropped++
			continue
		}
		risk, err := strconv.Atoi(as.RiskScore)
		if err != nil {
			dropped++
			continue
		}

		rows = append(rows, TrainingRow{
			Text:       rec.Alert.Description + " " + as.Behavior + " " + as.Evidence,
			Risk:       risk,
			Technique:  CleanTechnique(as.Mitre),
			Escalation: EscalationLabel(risk),
		})
	}
	return rows, dropped
}

// CleanTechnique reduces a free-text technique field to its leading token,
// usually the technique identifier.
func CleanTechnique(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// EscalationLabel maps a risk score to its escalation tier: 1-3 monitor,
// 4-6 investigate, everything above escalate.
func EscalationLabel(risk int) int {
	switch {
	case risk <= 3:
		return 0
	case risk <= 6:
		return 1
	default:
		return 2
	}
}
