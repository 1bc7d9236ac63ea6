package handler

import (
	"repuestos_backend/internal/offers/repository"
	"repuestos_backend/internal/offers/service"
	"repuestos_backend/internal/offers/transport"
	"repuestos_backend/platform/httpkit"
	"repuestos_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for offers.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new offers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the offer routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Submit)
	rg.POST("/bulk", h.SubmitBulk)
	rg.GET("/:id", h.GetByID)
}

func (h *Handler) Submit(c *gin.Context) {
	var req transport.SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, 400, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, "validation failed", err.Error())
		return
	}

	offer, details, err := h.svc.Submit(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, 201, toResponse(offer, details))
}

func (h *Handler) SubmitBulk(c *gin.Context) {
	var req transport.BulkOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, 400, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, "validation failed", err.Error())
		return
	}

	offer, details, err := h.svc.SubmitBulk(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, 201, toResponse(offer, details))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid offer id", nil)
		return
	}

	offer, details, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(offer, details))
}

func toResponse(o *repository.Offer, details []repository.OfferDetail) transport.OfferResponse {
	out := transport.OfferResponse{
		ID:        o.ID,
		RequestID: o.RequestID,
		AdvisorID: o.AdvisorID,
		State:     string(o.State),
		CreatedAt: o.CreatedAt,
	}
	for _, d := range details {
		out.Lines = append(out.Lines, transport.LineResponse{
			RequestItemID:  d.RequestItemID,
			UnitPriceCents: d.UnitPriceCents,
			Quantity:       d.Quantity,
			WarrantyMonths: d.WarrantyMonths,
			DeliveryDays:   d.DeliveryDays,
			Brand:          d.Brand,
			Origin:         d.Origin,
			Notes:          d.Notes,
		})
	}
	return out
}
