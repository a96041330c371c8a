package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskmatrix/core/internal/api/middleware"
	"github.com/taskmatrix/core/internal/services"
)

// NotificationHandler handles push subscription requests
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// SubscribeRequest represents the push subscription request body
type SubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Auth     string `json:"auth"`
	P256dh   string `json:"p256dh"`
}

// Subscribe registers a push endpoint for the authenticated user
// POST /api/notifications/subscriptions
func (h *NotificationHandler) Subscribe(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	sub, err := h.notificationService.Subscribe(userID, req.Endpoint, req.Auth, req.P256dh)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSubscription) {
			badRequest(c, "Invalid subscription endpoint")
			return
		}
		internalError(c, "Failed to register subscription")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    sub,
	})
}

// ListSubscriptions returns the user's push subscriptions
// GET /api/notifications/subscriptions
func (h *NotificationHandler) ListSubscriptions(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	subs, err := h.notificationService.ListSubscriptions(userID)
	if err != nil {
		internalError(c, "Failed to retrieve subscriptions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"subscriptions": subs},
	})
}

// Unsubscribe removes a push subscription
// DELETE /api/notifications/subscriptions/:id
func (h *NotificationHandler) Unsubscribe(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	subID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "Invalid subscription ID")
		return
	}

	if err := h.notificationService.Unsubscribe(userID, uint(subID)); err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			notFound(c, "Subscription not found")
			return
		}
		internalError(c, "Failed to remove subscription")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Subscription removed",
	})
}
