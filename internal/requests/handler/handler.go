package handler

import (
	"context"
	"strconv"

	"repuestos_backend/internal/requests/repository"
	"repuestos_backend/internal/requests/service"
	"repuestos_backend/internal/requests/transport"
	"repuestos_backend/platform/httpkit"
	"repuestos_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ResponseProcessor applies a client's free-text reply to an evaluated
// request. Implemented by the evaluation module.
type ResponseProcessor interface {
	ProcessClientResponse(ctx context.Context, requestID uuid.UUID, message string) (accepted bool, err error)
}

// Handler handles HTTP requests for parts requests.
type Handler struct {
	svc       *service.Service
	val       *validator.Validator
	responses ResponseProcessor
}

// New creates a new requests handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// SetResponseProcessor wires the client-response use case.
func (h *Handler) SetResponseProcessor(p ResponseProcessor) {
	h.responses = p
}

// RegisterRoutes registers the request routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/close", h.Close)
	rg.POST("/:id/response", h.ClientResponse)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, 400, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, "validation failed", err.Error())
		return
	}

	created, items, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, 201, toResponse(created, items))
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reqs, err := h.svc.List(c.Request.Context(), limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.RequestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, toResponse(&reqs[i], nil))
	}
	httpkit.OK(c, out)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid request id", nil)
		return
	}

	req, items, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(req, items))
}

func (h *Handler) Close(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid request id", nil)
		return
	}

	if err := h.svc.CloseWithoutOffers(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "closed"})
}

func (h *Handler) ClientResponse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid request id", nil)
		return
	}

	var req transport.ClientResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, 400, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, "validation failed", err.Error())
		return
	}

	if h.responses == nil {
		httpkit.Error(c, 503, "response processing unavailable", nil)
		return
	}

	accepted, err := h.responses.ProcessClientResponse(c.Request.Context(), id, req.Message)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"accepted": accepted})
}

func toResponse(r *repository.Request, items []repository.RequestItem) transport.RequestResponse {
	out := transport.RequestResponse{
		ID:                    r.ID,
		ClientID:              r.ClientID,
		State:                 string(r.State),
		StateDetail:           r.StateDetail,
		CurrentTier:           r.CurrentTier,
		OriginCity:            r.OriginCity,
		OriginDepartment:      r.OriginDepartment,
		MinDesiredOffers:      r.MinDesiredOffers,
		TimeoutHours:          r.TimeoutHours,
		ExpiresAt:             r.ExpiresAt,
		EvaluatedAt:           r.EvaluatedAt,
		TotalAdjudicatedCents: r.TotalAdjudicatedCents,
		CreatedAt:             r.CreatedAt,
	}
	for _, it := range items {
		out.Items = append(out.Items, transport.ItemResponse{
			ID:          it.ID,
			Name:        it.Name,
			Code:        it.Code,
			Quantity:    it.Quantity,
			VehicleMake: it.VehicleMake,
			VehicleLine: it.VehicleLine,
			VehicleYear: it.VehicleYear,
			Notes:       it.Notes,
		})
	}
	return out
}
