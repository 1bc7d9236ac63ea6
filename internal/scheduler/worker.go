package scheduler

import (
	"context"
	"fmt"
	"time"

	"repuestos_backend/internal/escalation"
	"repuestos_backend/internal/evaluation"
	"repuestos_backend/internal/expiration"
	"repuestos_backend/platform/config"
	"repuestos_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes the marketplace job queue.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	escalation *escalation.Service
	evaluation *evaluation.Service
	sweeper    *expiration.Sweeper
	log        *logger.Logger
}

// NewWorker creates the asynq server with all task handlers registered.
func NewWorker(cfg config.SchedulerConfig, escalationSvc *escalation.Service, evaluationSvc *evaluation.Service, sweeper *expiration.Sweeper, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		escalation: escalationSvc,
		evaluation: evaluationSvc,
		sweeper:    sweeper,
		log:        log,
	}

	mux.HandleFunc(TaskEscalationAdvance, w.handleEscalationAdvance)
	mux.HandleFunc(TaskEvaluationRun, w.handleEvaluationRun)
	mux.HandleFunc(TaskExpirationSweep, w.handleExpirationSweep)

	return w, nil
}

func (w *Worker) handleEscalationAdvance(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEscalationAdvancePayload(task)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(payload.RequestID)
	if err != nil {
		return err
	}

	return w.escalation.Advance(ctx, requestID)
}

func (w *Worker) handleEvaluationRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEvaluationRunPayload(task)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(payload.RequestID)
	if err != nil {
		return err
	}

	_, err = w.evaluation.Run(ctx, requestID, time.Duration(payload.TimeoutSeconds)*time.Second)
	return err
}

func (w *Worker) handleExpirationSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseExpirationSweepPayload(task)
	if err != nil {
		return err
	}

	_, err = w.sweeper.Sweep(ctx, payload.TimeoutHours)
	return err
}

// Run serves the queue until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
