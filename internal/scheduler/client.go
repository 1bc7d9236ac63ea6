package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"repuestos_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues delayed marketplace jobs.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient creates an asynq client from the scheduler configuration.
func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleAdvance enqueues the wave check that fires after a tier's wait.
func (c *Client) ScheduleAdvance(ctx context.Context, requestID uuid.UUID, delay time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewEscalationAdvanceTask(EscalationAdvancePayload{RequestID: requestID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.Queue(c.queue))
	return err
}

// EnqueueEvaluation schedules an evaluation run for a request.
func (c *Client) EnqueueEvaluation(ctx context.Context, requestID uuid.UUID, timeoutSeconds int) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewEvaluationRunTask(EvaluationRunPayload{
		RequestID:      requestID.String(),
		TimeoutSeconds: timeoutSeconds,
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// EnqueueSweep schedules an expiration sweep.
func (c *Client) EnqueueSweep(ctx context.Context, timeoutHours int) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewExpirationSweepTask(ExpirationSweepPayload{TimeoutHours: timeoutHours})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
