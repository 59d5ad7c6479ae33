package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"birdsbuddy/internal/service"
)

const defaultHistoryHours = 24

// @Summary      Reservoir history
// @Description  Hourly average reservoir levels, oldest first.
// @Tags         history
// @Produce      json
// @Param        hours  query  int  false  "Window in hours (1-168)"  default(24)
// @Success      200  {object}  map[string]interface{}  "hours, points"
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/history [get]
func (h *Handler) getHistory(c *gin.Context) {
	hours := defaultHistoryHours
	if qs := c.Query("hours"); qs != "" {
		v, err := strconv.Atoi(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'hours'; use an integer"})
			return
		}
		hours = v
	}

	points, err := h.services.History.Hourly(c.Request.Context(), hours)
	switch {
	case errors.Is(err, service.ErrHistoryDisabled):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load history", "history_query_failed", err, "hours", hours)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"hours":  hours,
		"points": points,
	})
}
