// Package transport defines the HTTP request/response shapes for requests.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateItem is one requested line item in the intake payload.
type CreateItem struct {
	Name        string  `json:"name" validate:"required,min=2,max=200"`
	Code        *string `json:"code" validate:"omitempty,max=64"`
	Quantity    int     `json:"quantity" validate:"required,min=1"`
	VehicleMake string  `json:"vehicle_make" validate:"required,max=80"`
	VehicleLine string  `json:"vehicle_line" validate:"required,max=120"`
	VehicleYear *int    `json:"vehicle_year" validate:"omitempty,min=1950,max=2035"`
	Notes       *string `json:"notes" validate:"omitempty,max=500"`
}

// CreateRequest is the intake payload for a new parts request.
type CreateRequest struct {
	ClientID         uuid.UUID    `json:"client_id" validate:"required"`
	OriginCity       string       `json:"origin_city" validate:"required,min=2,max=120"`
	OriginDepartment string       `json:"origin_department" validate:"required,min=2,max=120"`
	MinDesiredOffers int          `json:"min_desired_offers" validate:"omitempty,min=1,max=20"`
	Items            []CreateItem `json:"items" validate:"required,min=1,max=50,dive"`
}

// ItemResponse is one line item in API responses.
type ItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Code        *string   `json:"code,omitempty"`
	Quantity    int       `json:"quantity"`
	VehicleMake string    `json:"vehicle_make"`
	VehicleLine string    `json:"vehicle_line"`
	VehicleYear *int      `json:"vehicle_year,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
}

// RequestResponse is the API shape of a request.
type RequestResponse struct {
	ID                    uuid.UUID      `json:"id"`
	ClientID              uuid.UUID      `json:"client_id"`
	State                 string         `json:"estado"`
	StateDetail           *string        `json:"estado_detalle,omitempty"`
	CurrentTier           int            `json:"current_tier"`
	OriginCity            string         `json:"origin_city"`
	OriginDepartment      string         `json:"origin_department"`
	MinDesiredOffers      int            `json:"min_desired_offers"`
	TimeoutHours          int            `json:"timeout_hours"`
	ExpiresAt             *time.Time     `json:"expires_at,omitempty"`
	EvaluatedAt           *time.Time     `json:"evaluated_at,omitempty"`
	TotalAdjudicatedCents int64          `json:"total_adjudicated_cents"`
	Items                 []ItemResponse `json:"items,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
}

// ClientResponseRequest carries the client's free-text reply to an evaluation.
type ClientResponseRequest struct {
	Message string `json:"message" validate:"required,min=1,max=1000"`
}
