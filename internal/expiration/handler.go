package expiration

import (
	"strconv"

	"repuestos_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler exposes the admin sweep trigger.
type Handler struct {
	sweeper *Sweeper
}

// NewHandler creates an expiration handler.
func NewHandler(sweeper *Sweeper) *Handler {
	return &Handler{sweeper: sweeper}
}

// RegisterRoutes registers the admin expiration routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/expirations/run", h.Run)
}

// Run triggers a sweep. Accepts an optional timeoutHours query parameter
// overriding the configured offer timeout.
func (h *Handler) Run(c *gin.Context) {
	override := 0
	if raw := c.Query("timeoutHours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			httpkit.Error(c, 400, "invalid timeoutHours", nil)
			return
		}
		override = hours
	}

	result, err := h.sweeper.Sweep(c.Request.Context(), override)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"warned": result.Warned, "expired": result.Expired})
}
