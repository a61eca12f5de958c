package triage

import (
	"context"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/history"
)

// Service is the business boundary for pipeline operations.
type Service struct {
	engine *Engine
	store  history.Store
	logger log.Logger
}

// NewService creates a new triage service.
func NewService(engine *Engine, store history.Store, logger log.Logger) *Service {
	return &Service{
		engine: engine,
		store:  store,
		logger: logger,
	}
}

// Submit runs one alert through the pipeline synchronously.
func (s *Service) Submit(ctx context.Context, al alert.Alert) (*RunResult, error) {
	return s.engine.Run(ctx, al)
}

// ProcessBatch runs each alert through the pipeline independently. One
// alert's failure never aborts the rest; the summary reports per-item
// outcomes.
func (s *Service) ProcessBatch(ctx context.Context, alerts []alert.Alert) BatchSummary {
	var sum BatchSummary

	for i, al := range alerts {
		rr, err := s.engine.Run(ctx, al)
		if err != nil {
			s.logger.Error(ctx, err, "alert pipeline failed",
				"index", i,
				"source_ip", al.SourceIP,
			)
			sum.Failed++
			continue
		}
		if rr.Skipped {
			s.logger.Warn(ctx, "alert skipped",
				"index", i,
				"reason", rr.Reason,
			)
			sum.Skipped++
			continue
		}
		sum.Processed++
	}

	s.logger.Info(ctx, "batch complete",
		"processed", sum.Processed,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
	)
	return sum
}

// Get retrieves one history record by ID.
func (s *Service) Get(ctx context.Context, id string) (*history.Record, bool, error) {
	return s.store.Get(ctx, id)
}

// List returns all history records in append order.
func (s *Service) List(ctx context.Context) ([]history.Record, error) {
	return s.store.List(ctx)
}
