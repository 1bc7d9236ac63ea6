package evaluation

import (
	"context"
	"time"

	"repuestos_backend/internal/params"
	"repuestos_backend/platform/logger"

	"github.com/google/uuid"
)

// SettingsSource hands out configuration snapshots.
type SettingsSource interface {
	Snapshot() params.Settings
}

// Service runs evaluations under the per-request lock and deadline.
type Service struct {
	controller *ConcurrencyController
	engine     *Engine
	settings   SettingsSource
	log        *logger.Logger
}

// NewService creates the evaluation orchestrator.
func NewService(controller *ConcurrencyController, engine *Engine, settings SettingsSource, log *logger.Logger) *Service {
	return &Service{controller: controller, engine: engine, settings: settings, log: log}
}

// Run evaluates one request: take the lock, bound the run with the configured
// deadline, evaluate, release. timeoutOverride <= 0 uses the configured value.
func (s *Service) Run(ctx context.Context, requestID uuid.UUID, timeoutOverride time.Duration) (*Outcome, error) {
	settings := s.settings.Snapshot()

	release, err := s.controller.AcquireEvaluationLock(ctx, requestID, settings.Lock)
	if err != nil {
		return nil, err
	}
	defer release()

	timeout := time.Duration(settings.EvalTimeoutSecs) * time.Second
	if timeoutOverride > 0 {
		timeout = timeoutOverride
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.log.JobEvent("evaluation", "started", "request_id", requestID, "timeout", timeout.String())
	outcome, err := s.engine.Evaluate(runCtx, requestID, settings)
	if err != nil {
		s.log.JobEvent("evaluation", "failed", "request_id", requestID, "error", err.Error())
		return nil, err
	}
	s.log.JobEvent("evaluation", "finished", "request_id", requestID, "closed_without_offers", outcome.ClosedWithoutOffers)
	return outcome, nil
}

// IsEvaluationInProgress exposes the lock check for offer submission.
func (s *Service) IsEvaluationInProgress(ctx context.Context, requestID uuid.UUID) (bool, error) {
	return s.controller.IsEvaluationInProgress(ctx, requestID)
}
