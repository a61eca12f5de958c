// Package alertapi exposes the alert pipeline and history store over HTTP.
package alertapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/assess"
	"github.com/linnemanlabs/argus/internal/history"
	"github.com/linnemanlabs/argus/internal/l3"
	"github.com/linnemanlabs/argus/internal/triage"
)

// PipelineService defines the business operations alertapi needs.
type PipelineService interface {
	Submit(ctx context.Context, al alert.Alert) (*triage.RunResult, error)
	ProcessBatch(ctx context.Context, alerts []alert.Alert) triage.BatchSummary
	Get(ctx context.Context, id string) (*history.Record, bool, error)
	List(ctx context.Context) ([]history.Record, error)
}

// Predictor runs the secondary classifier ensemble over a stored record.
type Predictor interface {
	Predict(al alert.Alert, as assess.Assessment) (l3.Prediction, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger    log.Logger
	svc       PipelineService
	predictor Predictor
}

// New creates a new API handler. predictor may be nil when no ensemble
// artifact is configured.
func New(logger log.Logger, svc PipelineService, predictor Predictor) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("pipeline service is required"))
	}
	return &API{
		logger:    logger,
		svc:       svc,
		predictor: predictor,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/alerts", a.handleIngestAlerts)
		r.Get("/history", a.handleListHistory)
		r.Get("/history/{id}", a.handleGetRecord)
		r.Get("/history/{id}/prediction", a.handleGetPrediction)
	})
}

func (a *API) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
