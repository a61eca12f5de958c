package alertapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/argus/internal/alert"
)

// ingestPayload accepts either a batch under "alerts" or a single alert's
// fields at the top level.
type ingestPayload struct {
	Alerts []alert.Alert `json:"alerts"`

	alert.Alert
}

func (a *API) handleIngestAlerts(w http.ResponseWriter, r *http.Request) {
	var payload ingestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())

	// Batch form: run every alert, report the summary.
	if len(payload.Alerts) > 0 {
		span.SetAttributes(attribute.Int("argus.batch.size", len(payload.Alerts)))

		sum := a.svc.ProcessBatch(r.Context(), payload.Alerts)
		a.respondJSON(w, http.StatusOK, sum)
		return
	}

	// Single alert form.
	al := payload.Alert
	if al.Description == "" || al.SourceIP == "" {
		http.Error(w, `{"error":"description and source_ip are required"}`, http.StatusBadRequest)
		return
	}

	rr, err := a.svc.Submit(r.Context(), al)
	if err != nil {
		a.logger.Error(r.Context(), err, "alert pipeline failed", "source_ip", al.SourceIP)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if rr.Skipped {
		a.respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"skipped": true,
			"reason":  rr.Reason,
		})
		return
	}

	span.SetAttributes(attribute.String("argus.record.id", rr.Record.ID))

	a.respondJSON(w, http.StatusCreated, rr.Record)
}
