package evaluation

import (
	"strconv"
	"time"

	"repuestos_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes the admin evaluation trigger.
type Handler struct {
	svc *Service
}

// NewHandler creates an evaluation handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the admin evaluation routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/evaluations/:requestId", h.Trigger)
}

// Trigger runs an evaluation for a request. Accepts an optional
// timeoutSeconds query parameter overriding the configured deadline.
func (h *Handler) Trigger(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		httpkit.Error(c, 400, "invalid request id", nil)
		return
	}

	var override time.Duration
	if raw := c.Query("timeoutSeconds"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			httpkit.Error(c, 400, "invalid timeoutSeconds", nil)
			return
		}
		override = time.Duration(secs) * time.Second
	}

	outcome, err := h.svc.Run(c.Request.Context(), requestID, override)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"request_id":            outcome.RequestID,
		"closed_without_offers": outcome.ClosedWithoutOffers,
		"adjudications":         len(outcome.Adjudications),
		"winning_offers":        outcome.WinningOffers,
		"total_cents":           outcome.TotalCents,
		"single_provider":       outcome.SingleProvider,
		"delivery_days":         outcome.AggregateDeliveryDays,
		"warranty_months":       outcome.AggregateWarrantyMos,
	})
}
