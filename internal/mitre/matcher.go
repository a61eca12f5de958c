package mitre

import (
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// minMatchScore is the similarity floor below which a description is
	// treated as unmatched.
	minMatchScore = 0.30

	// unknownConfidence is reported for the Unknown sentinel so downstream
	// consumers never see a zero-confidence record.
	unknownConfidence = 40
)

// Source is the catalog surface the matcher needs.
type Source interface {
	Techniques() []Technique
	ByExternalID(id string) (Technique, bool)
	Mitigations(externalID string) ([]string, error)
}

// Match is the enriched outcome of matching one alert description.
// Confidence reflects similarity-score strength, not model certainty.
type Match struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Tactic      string   `json:"tactic"`
	Confidence  int      `json:"confidence"`
	Description string   `json:"description"`
	Mitigations []string `json:"mitigations"`
	Detection   []string `json:"detection"`
	References  []string `json:"references"`
}

// Matcher finds the best catalog technique for a free-text description.
type Matcher struct {
	catalog Source
}

// NewMatcher creates a matcher over the given catalog.
func NewMatcher(catalog Source) *Matcher {
	return &Matcher{catalog: catalog}
}

// Match scores the description against every catalog entry's name and
// description and returns the best entry, or the Unknown sentinel when
// nothing scores at least minMatchScore. The first entry with the maximum
// score wins; catalog iteration order is stable.
func (m *Matcher) Match(description string) Match {
	keyword := strings.ToLower(description)

	entries := m.catalog.Techniques()

	var best *Technique
	bestScore := 0.0

	for i := range entries {
		score := similarity(keyword, entries[i])
		if score > bestScore {
			bestScore = score
			best = &entries[i]
		}
	}

	if best == nil || bestScore < minMatchScore {
		return unknownMatch()
	}

	out := Match{
		ID:          best.ExternalID,
		Name:        best.Name,
		Tactic:      tacticOrUnknown(best.Tactic),
		Confidence:  int(math.Round(bestScore * 100)),
		Description: best.Description,
	}
	out.Mitigations, out.Detection, out.References = m.extraFields(*best)

	// Sub-techniques with sparse fields inherit from their parent entry.
	// Fields already populated on the child are never overwritten.
	if (len(out.Mitigations) == 0 || len(out.Detection) == 0) && isSubTechnique(out.ID) {
		m.inheritFromParent(&out)
	}

	return out
}

func (m *Matcher) extraFields(t Technique) (mitigations, detection, references []string) {
	mitigations = []string{}
	detection = []string{}
	references = []string{}

	references = append(references, t.References...)

	// Detection notes are a heuristic over the entry's own description.
	lower := strings.ToLower(t.Description)
	if strings.Contains(lower, "detect") || strings.Contains(lower, "monitor") {
		detection = append(detection, t.Description)
	}

	// Mitigation lookup failures mean "no additional fields for this entry".
	if mits, err := m.catalog.Mitigations(t.ExternalID); err == nil {
		mitigations = append(mitigations, mits...)
	}

	return mitigations, detection, references
}

// inheritFromParent fills still-empty fields on a sub-technique match from
// the parent entry. The parent is the catalog entry whose external ID equals
// the sub-technique ID's prefix before the first dot, exact match only.
func (m *Matcher) inheritFromParent(out *Match) {
	parent, ok := m.catalog.ByExternalID(parentID(out.ID))
	if !ok {
		return
	}

	pm, pd, pr := m.extraFields(parent)
	if len(out.Mitigations) == 0 {
		out.Mitigations = pm
	}
	if len(out.Detection) == 0 {
		out.Detection = pd
	}
	if len(out.References) == 0 {
		out.References = pr
	}
}

func similarity(keyword string, t Technique) float64 {
	name := ratio(keyword, strings.ToLower(t.Name))
	desc := ratio(keyword, strings.ToLower(t.Description))
	return math.Max(name, desc)
}

// ratio is the difflib SequenceMatcher ratio over individual characters,
// matching how the catalog's similarity threshold was calibrated.
func ratio(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

func isSubTechnique(id string) bool {
	return strings.Contains(id, ".")
}

func parentID(id string) string {
	return id[:strings.Index(id, ".")]
}

func tacticOrUnknown(t string) string {
	if t == "" {
		return "Unknown"
	}
	return t
}

func unknownMatch() Match {
	return Match{
		ID:          "N/A",
		Name:        "Unknown",
		Tactic:      "Unknown",
		Confidence:  unknownConfidence,
		Description: "No catalog technique matched this description.",
		Mitigations: []string{},
		Detection:   []string{},
		References:  []string{},
	}
}
