// Package events defines the domain events exchanged between modules and
// re-exports the platform bus types so modules depend on one import.
package events

import (
	"time"

	"repuestos_backend/platform/events"

	"github.com/google/uuid"
)

// Re-exported bus types.
type (
	Event       = events.Event
	BaseEvent   = events.BaseEvent
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	Bus         = events.Bus
	InMemoryBus = events.InMemoryBus
)

// NewBaseEvent re-exports the platform constructor.
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus re-exports the platform constructor.
var NewInMemoryBus = events.NewInMemoryBus

// RequestCreated fires after a request and its items are persisted.
type RequestCreated struct {
	BaseEvent
	RequestID  uuid.UUID `json:"request_id"`
	ClientID   uuid.UUID `json:"client_id"`
	OriginCity string    `json:"origin_city"`
	ItemCount  int       `json:"item_count"`
}

// EventName returns the event type identifier.
func (e RequestCreated) EventName() string { return "solicitud.creada" }

// WaveNotified fires after an escalation tier has been notified.
type WaveNotified struct {
	BaseEvent
	RequestID uuid.UUID `json:"request_id"`
	Tier      int       `json:"tier"`
	Notified  int       `json:"notified"`
	Channel   string    `json:"channel"`
}

// EventName returns the event type identifier.
func (e WaveNotified) EventName() string { return "solicitud.ola_notificada" }

// OfferSubmitted fires after an advisor's offer is persisted.
type OfferSubmitted struct {
	BaseEvent
	OfferID   uuid.UUID `json:"offer_id"`
	RequestID uuid.UUID `json:"request_id"`
	AdvisorID uuid.UUID `json:"advisor_id"`
	Items     int       `json:"items"`
}

// EventName returns the event type identifier.
func (e OfferSubmitted) EventName() string { return "oferta.enviada" }

// EvaluationDone fires after an evaluation committed its adjudications.
type EvaluationDone struct {
	BaseEvent
	RequestID      uuid.UUID   `json:"request_id"`
	WinningOffers  []uuid.UUID `json:"winning_offers"`
	TotalCents     int64       `json:"total_cents"`
	SingleProvider bool        `json:"single_provider"`
}

// EventName returns the event type identifier.
func (e EvaluationDone) EventName() string { return "solicitud.evaluada" }

// EvaluationFailed fires when an evaluation run aborted without adjudicating.
type EvaluationFailed struct {
	BaseEvent
	RequestID uuid.UUID `json:"request_id"`
	Reason    string    `json:"reason"`
}

// EventName returns the event type identifier.
func (e EvaluationFailed) EventName() string { return "solicitud.evaluacion_fallida" }

// ClientResponded fires after a client decision was applied.
type ClientResponded struct {
	BaseEvent
	RequestID uuid.UUID `json:"request_id"`
	Accepted  bool      `json:"accepted"`
}

// EventName returns the event type identifier.
func (e ClientResponded) EventName() string { return "solicitud.respuesta_cliente" }

// OfferWarning fires once per offer when its expiration window approaches.
type OfferWarning struct {
	BaseEvent
	OfferID   uuid.UUID `json:"offer_id"`
	RequestID uuid.UUID `json:"request_id"`
	AdvisorID uuid.UUID `json:"advisor_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EventName returns the event type identifier.
func (e OfferWarning) EventName() string { return "oferta.expiracion_warning" }

// ExpirationSweep summarizes one sweeper pass.
type ExpirationSweep struct {
	BaseEvent
	Expired int `json:"expired"`
	Warned  int `json:"warned"`
}

// EventName returns the event type identifier.
func (e ExpirationSweep) EventName() string { return "sistema.expiracion_procesada" }

// RequestClosed fires when a request reaches a terminal closing state.
type RequestClosed struct {
	BaseEvent
	RequestID uuid.UUID `json:"request_id"`
	State     string    `json:"state"`
}

// EventName returns the event type identifier.
func (e RequestClosed) EventName() string { return "solicitud.cerrada" }
