package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"birdsbuddy/internal/models"
	"birdsbuddy/internal/service"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK       = "ok"
	statusAccepted = "accepted"

	errGetState       = "failed to load state"
	errDispatch       = "failed to dispatch command"
	errAlreadyPending = "action already pending"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get device state
// @Description  Current snapshot with alert flags, connectivity, simulation flag, pending actions and the live notification.
// @Tags         device
// @Produce      json
// @Success      200  {object}  service.StateView
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/device/state [get]
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "device_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Dispatch a manual action
// @Description  The outcome arrives asynchronously as a notification and log entry.
// @Tags         device
// @Produce      json
// @Param        kind  path  string  true  "Action"  Enums(feed,refill)
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/commands/{kind} [post]
func (h *Handler) postCommand(c *gin.Context) {
	kind, err := models.ParseActionKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accepted, err := h.services.Commands.Dispatch(c.Request.Context(), kind)
	switch {
	case errors.Is(err, service.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logAndJSONError(c, http.StatusInternalServerError, errDispatch, "command_dispatch_failed", err, "kind", kind)
		return
	case !accepted:
		c.JSON(http.StatusConflict, gin.H{"error": errAlreadyPending, "kind": kind})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted, "kind": kind})
}
