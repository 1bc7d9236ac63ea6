package scheduler

import (
	"fmt"

	apphttp "repuestos_backend/internal/http"
	"repuestos_backend/platform/config"
	"repuestos_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// StatusReporter exposes queue health for the admin surface.
type StatusReporter struct {
	inspector *asynq.Inspector
	queue     string
}

// NewStatusReporter creates an asynq inspector over the configured queue.
func NewStatusReporter(cfg config.SchedulerConfig) (*StatusReporter, error) {
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

	return &StatusReporter{
		inspector: asynq.NewInspector(opt),
		queue:     queue,
	}, nil
}

func (r *StatusReporter) Close() error {
	if r == nil || r.inspector == nil {
		return nil
	}
	return r.inspector.Close()
}

// Name returns the module identifier.
func (r *StatusReporter) Name() string {
	return "jobs"
}

// RegisterRoutes registers the admin jobs routes.
func (r *StatusReporter) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/jobs/status", r.Status)
}

var _ apphttp.Module = (*StatusReporter)(nil)

// Status reports the queue depth per task state.
func (r *StatusReporter) Status(c *gin.Context) {
	info, err := r.inspector.GetQueueInfo(r.queue)
	if err != nil {
		httpkit.Error(c, 503, "queue inspection failed", err.Error())
		return
	}

	httpkit.OK(c, gin.H{
		"queue":     info.Queue,
		"size":      info.Size,
		"pending":   info.Pending,
		"active":    info.Active,
		"scheduled": info.Scheduled,
		"retry":     info.Retry,
		"archived":  info.Archived,
		"completed": info.Completed,
		"paused":    info.Paused,
	})
}
