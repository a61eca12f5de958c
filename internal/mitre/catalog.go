// Package mitre maps free-text alert descriptions to entries in a fixed
// catalog of adversary techniques.
package mitre

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed attack_catalog.json
var embeddedCatalog []byte

// Technique is one catalog entry: an adversary behavior pattern with its
// kill-chain phase and external references.
type Technique struct {
	ExternalID  string   `json:"external_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tactic      string   `json:"tactic"`
	References  []string `json:"references"`
}

// Catalog is a preloaded, queryable collection of techniques with an
// associated mitigation lookup keyed by external ID. Iteration order over
// Techniques is the load order, which keeps matching tie-breaks stable.
type Catalog struct {
	entries     []Technique
	mitigations map[string][]string
	byID        map[string]int
}

type catalogDoc struct {
	Techniques  []Technique         `json:"techniques"`
	Mitigations map[string][]string `json:"mitigations"`
}

// NewCatalog builds a catalog from explicit entries. Used by tests and by
// deployments that load a custom technique set.
func NewCatalog(entries []Technique, mitigations map[string][]string) *Catalog {
	c := &Catalog{
		entries:     entries,
		mitigations: mitigations,
		byID:        make(map[string]int, len(entries)),
	}
	for i, t := range entries {
		if _, dup := c.byID[t.ExternalID]; !dup {
			c.byID[t.ExternalID] = i
		}
	}
	return c
}

// LoadEmbedded parses the catalog compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	var doc catalogDoc
	if err := json.Unmarshal(embeddedCatalog, &doc); err != nil {
		return nil, fmt.Errorf("parse embedded catalog: %w", err)
	}
	return NewCatalog(doc.Techniques, doc.Mitigations), nil
}

// Techniques returns all catalog entries in stable load order.
func (c *Catalog) Techniques() []Technique {
	return c.entries
}

// ByExternalID looks up a technique by its external identifier (e.g. T1110).
func (c *Catalog) ByExternalID(id string) (Technique, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Technique{}, false
	}
	return c.entries[i], true
}

// Mitigations returns the mitigation texts associated with a technique.
// Unknown identifiers are an error; callers that treat mitigations as
// optional enrichment swallow it.
func (c *Catalog) Mitigations(externalID string) ([]string, error) {
	m, ok := c.mitigations[externalID]
	if !ok {
		return nil, fmt.Errorf("no mitigations recorded for %s", externalID)
	}
	return m, nil
}
