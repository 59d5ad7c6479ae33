package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"birdsbuddy/internal/models"
	"birdsbuddy/internal/service"
)

// PushSubscriptionRequest mirrors the browser PushSubscription JSON.
type PushSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required" example:"https://fcm.googleapis.com/fcm/send/abc"`
	Keys     struct {
		P256DH string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys"`
}

type pushUnsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// pushError maps push service errors to HTTP codes.
func (h *Handler) pushError(c *gin.Context, logKey string, err error) {
	switch {
	case errors.Is(err, service.ErrPushDisabled):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidSubscription):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "push subscription update failed", logKey, err)
	}
}

// @Summary      VAPID public key
// @Tags         push
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/push/vapid [get]
func (h *Handler) getVAPIDKey(c *gin.Context) {
	key, err := h.services.Push.VAPIDPublicKey()
	if err != nil {
		h.pushError(c, "push_vapid_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": key})
}

// @Summary      Register a push subscription
// @Tags         push
// @Accept       json
// @Produce      json
// @Param        body  body  PushSubscriptionRequest  true  "Browser subscription"
// @Success      201  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/push/subscriptions [post]
func (h *Handler) subscribePush(c *gin.Context) {
	var req PushSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	err := h.services.Push.Subscribe(c.Request.Context(), models.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.Keys.P256DH,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		h.pushError(c, "push_subscribe_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "subscribed"})
}

// @Summary      Remove a push subscription
// @Tags         push
// @Accept       json
// @Produce      json
// @Param        body  body  object  true  "{\"endpoint\": \"...\"}"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/push/subscriptions [delete]
func (h *Handler) unsubscribePush(c *gin.Context) {
	var req pushUnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	if err := h.services.Push.Unsubscribe(c.Request.Context(), req.Endpoint); err != nil {
		h.pushError(c, "push_unsubscribe_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unsubscribed"})
}
