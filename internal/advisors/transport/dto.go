// Package transport defines request/response DTOs for the advisors module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateAdvisorRequest is the intake payload for a new advisor.
type CreateAdvisorRequest struct {
	Name           string   `json:"name" validate:"required,min=2,max=200"`
	Phone          string   `json:"phone" validate:"required,e164_phone"`
	City           string   `json:"city" validate:"required,min=2,max=100"`
	Department     string   `json:"department" validate:"required,min=2,max=100"`
	PointOfSale    string   `json:"pointOfSale" validate:"required,min=2,max=200"`
	TrustScore     float64  `json:"trustScore" validate:"gte=1,lte=5"`
	ActivityPct    *float64 `json:"activityPct" validate:"omitempty,gte=0,lte=100"`
	PerformancePct *float64 `json:"performancePct" validate:"omitempty,gte=0,lte=100"`
}

// AdvisorResponse is the public view of an advisor.
type AdvisorResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	City            string    `json:"city"`
	Department      string    `json:"department"`
	PointOfSale     string    `json:"pointOfSale"`
	TrustScore      float64   `json:"trustScore"`
	ActivityPct     *float64  `json:"activityPct,omitempty"`
	PerformancePct  *float64  `json:"performancePct,omitempty"`
	Status          string    `json:"status"`
	OffersMade      int       `json:"offersMade"`
	OffersWon       int       `json:"offersWon"`
	TotalSalesCents int64     `json:"totalSalesCents"`
	CreatedAt       time.Time `json:"createdAt"`
}
