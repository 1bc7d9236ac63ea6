package params

import (
	"encoding/json"

	"repuestos_backend/platform/httpkit"
	"repuestos_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// UpdateRequest is the payload for a batched parameter update.
type UpdateRequest struct {
	Updates []UpdateEntry `json:"updates" binding:"required" validate:"required,min=1,dive"`
}

// UpdateEntry is one key/value pair in an update batch.
type UpdateEntry struct {
	Key   string          `json:"key" validate:"required"`
	Value json.RawMessage `json:"value" validate:"required"`
}

// Handler handles HTTP requests for configuration parameters.
type Handler struct {
	store *Store
	repo  *Repository
	val   *validator.Validator
}

// NewHandler creates a new params handler.
func NewHandler(store *Store, repo *Repository, val *validator.Validator) *Handler {
	return &Handler{store: store, repo: repo, val: val}
}

// RegisterRoutes registers the parameter routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.PUT("", h.Update)
}

// List returns every stored parameter row.
func (h *Handler) List(c *gin.Context) {
	rows, err := h.repo.GetAll(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"parameters": rows})
}

// Update applies a validated batch of parameter writes.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, 400, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, "validation failed", err.Error())
		return
	}

	updates := make([]ParamUpdate, 0, len(req.Updates))
	for _, u := range req.Updates {
		updates = append(updates, ParamUpdate{Key: u.Key, Value: u.Value})
	}

	if err := h.store.UpdateParameters(c.Request.Context(), updates); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "updated"})
}
