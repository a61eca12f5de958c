package alertapi

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
)

func (a *API) handleListHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := a.svc.List(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list history")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int("argus.history.count", len(recs)),
	)

	a.respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(recs),
		"records": recs,
	})
}

func (a *API) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("argus.record.id", id))

	rec, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get record", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	a.respondJSON(w, http.StatusOK, rec)
}

func (a *API) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	if a.predictor == nil {
		http.Error(w, `{"error":"prediction not configured"}`, http.StatusServiceUnavailable)
		return
	}

	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("argus.record.id", id))

	rec, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get record", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	pred, err := a.predictor.Predict(rec.Alert, rec.Assessment)
	if err != nil {
		a.logger.Warn(r.Context(), "prediction rejected", "id", id, "reason", err.Error())
		a.respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": "record not predictable",
		})
		return
	}

	span.SetAttributes(attribute.Int("argus.prediction.cluster", pred.Cluster))

	a.respondJSON(w, http.StatusOK, pred)
}
