// Package alert defines the raw security event that enters the triage
// pipeline, plus a loader for JSON batch files.
package alert

import (
	"encoding/json"
	"fmt"
	"os"
)

// Alert is a single raw security event submitted for triage. Fields are
// immutable once ingested; the pipeline only reads them.
type Alert struct {
	Description string `json:"description"`
	Username    string `json:"username"`
	SourceIP    string `json:"source_ip"`
	Location    string `json:"location"`
}

// LoadFile reads a JSON array of alerts from path.
func LoadFile(path string) ([]Alert, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator-supplied config, not user input
	if err != nil {
		return nil, fmt.Errorf("read alerts file: %w", err)
	}

	var alerts []Alert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, fmt.Errorf("decode alerts file %s: %w", path, err)
	}
	return alerts, nil
}
