package mitre

import (
	"testing"
)

func testCatalog() *Catalog {
	return NewCatalog(
		[]Technique{
			{
				ExternalID:  "T9001",
				Name:        "Credential Stuffing",
				Description: "Reuse of breached credential pairs against login endpoints. Monitor failed login bursts to detect stuffing campaigns.",
				Tactic:      "Credential Access",
				References:  []string{"https://example.test/T9001"},
			},
			{
				ExternalID:  "T9001.002",
				Name:        "API Credential Stuffing",
				Description: "Reuse of breached credential pairs against API token endpoints.",
				Tactic:      "Credential Access",
				References:  []string{"https://example.test/T9001.002"},
			},
			{
				ExternalID:  "T9002",
				Name:        "Log Tampering",
				Description: "Deletion or modification of audit logs to hide activity.",
				Tactic:      "Defense Evasion",
				References:  []string{"https://example.test/T9002"},
			},
			{
				ExternalID:  "T9002.001",
				Name:        "Syslog Tampering",
				Description: "Modification of syslog entries to hide activity. Detect gaps in sequence numbers.",
				Tactic:      "Defense Evasion",
				References:  []string{},
			},
		},
		map[string][]string{
			"T9001":     {"Enforce MFA.", "Rate-limit login attempts."},
			"T9002":     {"Ship logs to write-once storage."},
			"T9002.001": {"Sign syslog batches."},
		},
	)
}

func TestMatch_ExactName(t *testing.T) {
	t.Parallel()

	m := NewMatcher(testCatalog())
	got := m.Match("Credential Stuffing")

	if got.ID != "T9001" {
		t.Fatalf("id = %q, want T9001", got.ID)
	}
	if got.Confidence != 100 {
		t.Errorf("confidence = %d, want 100 for identical name", got.Confidence)
	}
	if got.Tactic != "Credential Access" {
		t.Errorf("tactic = %q, want %q", got.Tactic, "Credential Access")
	}
	if len(got.Mitigations) != 2 {
		t.Errorf("mitigations = %v, want 2 entries", got.Mitigations)
	}
	if len(got.Detection) != 1 {
		t.Errorf("detection = %v, want description-derived note", got.Detection)
	}
}

func TestMatch_BelowThresholdIsUnknownSentinel(t *testing.T) {
	t.Parallel()

	m := NewMatcher(testCatalog())
	got := m.Match("zzzz qqqq xxxx 0000")

	want := unknownMatch()
	if got.ID != want.ID || got.Name != want.Name {
		t.Errorf("got %q/%q, want N/A/Unknown", got.ID, got.Name)
	}
	if got.Confidence != 40 {
		t.Errorf("confidence = %d, want 40", got.Confidence)
	}
	if len(got.Mitigations) != 0 || len(got.Detection) != 0 || len(got.References) != 0 {
		t.Error("sentinel record must have empty enrichment fields")
	}
}

func TestMatch_EmptyCatalogIsUnknownSentinel(t *testing.T) {
	t.Parallel()

	m := NewMatcher(NewCatalog(nil, nil))
	got := m.Match("Credential Stuffing")

	if got.ID != "N/A" || got.Confidence != 40 {
		t.Errorf("got %q/%d, want N/A/40", got.ID, got.Confidence)
	}
}

func TestMatch_SubTechniqueInheritsParentMitigations(t *testing.T) {
	t.Parallel()

	m := NewMatcher(testCatalog())
	got := m.Match("API Credential Stuffing")

	if got.ID != "T9001.002" {
		t.Fatalf("id = %q, want T9001.002", got.ID)
	}
	// No mitigations recorded for the sub-technique, so the parent's apply.
	if len(got.Mitigations) != 2 || got.Mitigations[0] != "Enforce MFA." {
		t.Errorf("mitigations = %v, want parent mitigations", got.Mitigations)
	}
	// The child's own references must survive inheritance.
	if len(got.References) != 1 || got.References[0] != "https://example.test/T9001.002" {
		t.Errorf("references = %v, want child references preserved", got.References)
	}
}

func TestMatch_ChildFieldsNotOverwrittenByParent(t *testing.T) {
	t.Parallel()

	m := NewMatcher(testCatalog())
	got := m.Match("Syslog Tampering")

	if got.ID != "T9002.001" {
		t.Fatalf("id = %q, want T9002.001", got.ID)
	}
	// The sub-technique has its own mitigations and detection note;
	// neither may be replaced by the parent's.
	if len(got.Mitigations) != 1 || got.Mitigations[0] != "Sign syslog batches." {
		t.Errorf("mitigations = %v, want child's own", got.Mitigations)
	}
	if len(got.Detection) != 1 {
		t.Errorf("detection = %v, want child's own note", got.Detection)
	}
}

func TestMatch_MitigationLookupFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	// T9001 removed from the mitigations map: lookup errors, matching proceeds.
	cat := NewCatalog(
		[]Technique{{
			ExternalID:  "T9001",
			Name:        "Credential Stuffing",
			Description: "Reuse of breached credential pairs against login endpoints.",
			Tactic:      "Credential Access",
		}},
		nil,
	)
	got := NewMatcher(cat).Match("Credential Stuffing")

	if got.ID != "T9001" {
		t.Fatalf("id = %q, want T9001", got.ID)
	}
	if len(got.Mitigations) != 0 {
		t.Errorf("mitigations = %v, want empty on lookup failure", got.Mitigations)
	}
}

func TestLoadEmbedded(t *testing.T) {
	t.Parallel()

	cat, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded: %v", err)
	}
	if len(cat.Techniques()) == 0 {
		t.Fatal("embedded catalog is empty")
	}
	if _, ok := cat.ByExternalID("T1110"); !ok {
		t.Error("expected T1110 in embedded catalog")
	}

	got := NewMatcher(cat).Match("Brute Force")
	if got.ID != "T1110" {
		t.Errorf("id = %q, want T1110", got.ID)
	}
}
