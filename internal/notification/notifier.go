// Package notification is the outbound messaging seam. Delivery adapters
// (WhatsApp, Telegram, push) live outside this system; the dispatcher records
// every notification and publishes it on Redis pub/sub channels the adapters
// subscribe to.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"repuestos_backend/internal/events"
	"repuestos_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Pub/sub channels consumed by the external delivery adapters.
const (
	ChannelAdvisorPrefix = "notificaciones:asesor:"
	ChannelClientPrefix  = "notificaciones:cliente:"
	ChannelSystem        = "notificaciones:sistema"
)

// Notifier delivers notifications to marketplace participants.
type Notifier interface {
	NotifyAdvisor(ctx context.Context, advisorID uuid.UUID, summary, channel string) error
	NotifyClient(ctx context.Context, clientID uuid.UUID, message string) error
}

// message is the wire shape published for delivery adapters.
type message struct {
	Channel   string    `json:"channel,omitempty"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Dispatcher publishes notifications to Redis pub/sub and logs them.
type Dispatcher struct {
	client redis.UniversalClient
	log    *logger.Logger
}

// NewDispatcher creates a dispatcher on the given Redis client.
func NewDispatcher(client redis.UniversalClient, log *logger.Logger) *Dispatcher {
	return &Dispatcher{client: client, log: log}
}

// NotifyAdvisor publishes an advisor notification on their channel.
func (d *Dispatcher) NotifyAdvisor(ctx context.Context, advisorID uuid.UUID, summary, channel string) error {
	payload, err := json.Marshal(message{Channel: channel, Body: summary, Timestamp: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := d.client.Publish(ctx, ChannelAdvisorPrefix+advisorID.String(), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish advisor notification: %w", err)
	}
	d.log.Info("advisor notified", "advisor_id", advisorID, "channel", channel)
	return nil
}

// NotifyClient publishes a client notification.
func (d *Dispatcher) NotifyClient(ctx context.Context, clientID uuid.UUID, text string) error {
	payload, err := json.Marshal(message{Body: text, Timestamp: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := d.client.Publish(ctx, ChannelClientPrefix+clientID.String(), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish client notification: %w", err)
	}
	d.log.Info("client notified", "client_id", clientID)
	return nil
}

// RelaySystemEvents subscribes the dispatcher to the domain events the
// delivery adapters care about and mirrors them onto the system channel.
func (d *Dispatcher) RelaySystemEvents(bus events.Bus) {
	relay := events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		payload, err := json.Marshal(map[string]any{
			"event":       event.EventName(),
			"occurred_at": event.OccurredAt(),
			"data":        event,
		})
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return d.client.Publish(ctx, ChannelSystem, payload).Err()
	})

	for _, name := range []string{
		events.EvaluationDone{}.EventName(),
		events.EvaluationFailed{}.EventName(),
		events.OfferWarning{}.EventName(),
		events.ExpirationSweep{}.EventName(),
		events.RequestClosed{}.EventName(),
		events.ClientResponded{}.EventName(),
	} {
		bus.Subscribe(name, relay)
	}
}

// Compile-time check.
var _ Notifier = (*Dispatcher)(nil)
