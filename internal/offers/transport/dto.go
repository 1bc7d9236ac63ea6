// Package transport defines the HTTP request/response shapes for offers.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// OfferLine is one priced line in a single-offer payload.
type OfferLine struct {
	RequestItemID  uuid.UUID `json:"request_item_id" validate:"required"`
	UnitPriceCents int64     `json:"unit_price_cents" validate:"required,min=1"`
	Quantity       int       `json:"quantity" validate:"required,min=1"`
	WarrantyMonths int       `json:"warranty_months" validate:"min=0"`
	DeliveryDays   int       `json:"delivery_days" validate:"min=0"`
	Brand          *string   `json:"brand" validate:"omitempty,max=80"`
	Origin         *string   `json:"origin" validate:"omitempty,max=80"`
	Notes          *string   `json:"notes" validate:"omitempty,max=500"`
}

// SubmitOfferRequest is the single-offer intake payload.
type SubmitOfferRequest struct {
	RequestID uuid.UUID   `json:"request_id" validate:"required"`
	AdvisorID uuid.UUID   `json:"advisor_id" validate:"required"`
	Lines     []OfferLine `json:"lines" validate:"required,min=1,max=50,dive"`
}

// BulkOfferRequest carries offer lines in the tabular layout advisors paste
// from their channel conversations. Rows are positional cell lists; the first
// data row may be the general-configuration sentinel carrying a delivery time
// shared by every subsequent row.
type BulkOfferRequest struct {
	RequestID uuid.UUID  `json:"request_id" validate:"required"`
	AdvisorID uuid.UUID  `json:"advisor_id" validate:"required"`
	Rows      [][]string `json:"rows" validate:"required,min=1,max=60"`
}

// LineResponse is one offer line in API responses.
type LineResponse struct {
	RequestItemID  uuid.UUID `json:"request_item_id"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	WarrantyMonths int       `json:"warranty_months"`
	DeliveryDays   int       `json:"delivery_days"`
	Brand          *string   `json:"brand,omitempty"`
	Origin         *string   `json:"origin,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
}

// OfferResponse is the API shape of an offer.
type OfferResponse struct {
	ID        uuid.UUID      `json:"id"`
	RequestID uuid.UUID      `json:"request_id"`
	AdvisorID uuid.UUID      `json:"advisor_id"`
	State     string         `json:"estado"`
	Lines     []LineResponse `json:"lines,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
