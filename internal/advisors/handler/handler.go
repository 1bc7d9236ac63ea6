package handler

import (
	"time"

	"repuestos_backend/internal/advisors/repository"
	"repuestos_backend/internal/advisors/transport"
	"repuestos_backend/platform/httpkit"
	"repuestos_backend/platform/phone"
	"repuestos_backend/platform/sanitize"
	"repuestos_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for advisors.
type Handler struct {
	repo *repository.Repository
	val  *validator.Validator
}

// New creates a new advisors handler.
func New(repo *repository.Repository, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

// RegisterRoutes registers the advisor routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateAdvisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, 400, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, "validation failed", err.Error())
		return
	}

	now := time.Now()
	advisor := &repository.Advisor{
		ID:             uuid.New(),
		Name:           sanitize.Text(req.Name),
		Phone:          phone.NormalizeE164(req.Phone),
		City:           sanitize.Text(req.City),
		Department:     sanitize.Text(req.Department),
		PointOfSale:    sanitize.Text(req.PointOfSale),
		TrustScore:     req.TrustScore,
		ActivityPct:    req.ActivityPct,
		PerformancePct: req.PerformancePct,
		Status:         repository.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.repo.Create(c.Request.Context(), advisor); httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, 201, toResponse(advisor))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid advisor id", nil)
		return
	}

	advisor, err := h.repo.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(advisor))
}

func toResponse(a *repository.Advisor) transport.AdvisorResponse {
	return transport.AdvisorResponse{
		ID:              a.ID,
		Name:            a.Name,
		Phone:           a.Phone,
		City:            a.City,
		Department:      a.Department,
		PointOfSale:     a.PointOfSale,
		TrustScore:      a.TrustScore,
		ActivityPct:     a.ActivityPct,
		PerformancePct:  a.PerformancePct,
		Status:          a.Status,
		OffersMade:      a.OffersMade,
		OffersWon:       a.OffersWon,
		TotalSalesCents: a.TotalSalesCents,
		CreatedAt:       a.CreatedAt,
	}
}
