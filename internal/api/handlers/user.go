package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskmatrix/core/internal/api/middleware"
	"github.com/taskmatrix/core/internal/database/models"
	"github.com/taskmatrix/core/internal/services"
)

// UserHandler handles user profile related requests
type UserHandler struct {
	userService *services.UserService
	logService  *services.LogService
	inboxDomain string
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(userService *services.UserService, logService *services.LogService, inboxDomain string) *UserHandler {
	return &UserHandler{
		userService: userService,
		logService:  logService,
		inboxDomain: inboxDomain,
	}
}

// GetProfile returns the authenticated user's profile
// GET /api/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AUTH_FAILED",
				"message": "User not authenticated",
			},
		})
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "User not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"profile":       ToProfileResponse(user),
			"inbox_address": user.InboxAddress(h.inboxDomain),
		},
	})
}

// UpdateProfileRequest represents the profile update request body
type UpdateProfileRequest struct {
	Nickname string `json:"nickname"`
}

// UpdateProfile updates the authenticated user's profile
// PUT /api/user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AUTH_FAILED",
				"message": "User not authenticated",
			},
		})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request body",
			},
		})
		return
	}

	user, err := h.userService.UpdateUser(userID, req.Nickname)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to update profile",
			},
		})
		return
	}

	h.logService.LogInfo(userID, models.LogModuleUser, "update_profile", "Profile updated", nil)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    ToProfileResponse(user),
	})
}

// SetInboxAliasRequest represents the inbox alias update request body
type SetInboxAliasRequest struct {
	Alias string `json:"alias" binding:"required"`
}

// SetInboxAlias updates the user's email forwarding alias
// PUT /api/user/inbox-alias
func (h *UserHandler) SetInboxAlias(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AUTH_FAILED",
				"message": "User not authenticated",
			},
		})
		return
	}

	var req SetInboxAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request body",
			},
		})
		return
	}

	user, err := h.userService.SetInboxAlias(userID, req.Alias)
	if err != nil {
		status := http.StatusInternalServerError
		code := "INTERNAL_ERROR"
		switch {
		case errors.Is(err, services.ErrInvalidInboxAlias):
			status = http.StatusBadRequest
			code = "VALIDATION_ERROR"
		case errors.Is(err, services.ErrInboxAliasTaken):
			status = http.StatusConflict
			code = "CONFLICT"
		}
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	h.logService.LogInfo(userID, models.LogModuleUser, "set_inbox_alias", "Inbox alias updated", gin.H{
		"alias": user.InboxAlias,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"inbox_alias":   user.InboxAlias,
			"inbox_address": user.InboxAddress(h.inboxDomain),
		},
	})
}

// ChangePasswordRequest represents the password change request body
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword changes the authenticated user's password
// PUT /api/user/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AUTH_FAILED",
				"message": "User not authenticated",
			},
		})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request body",
			},
		})
		return
	}

	if err := h.userService.ChangePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		status := http.StatusInternalServerError
		code := "INTERNAL_ERROR"
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			status = http.StatusUnauthorized
			code = "AUTH_FAILED"
		case errors.Is(err, services.ErrPasswordTooShort):
			status = http.StatusBadRequest
			code = "VALIDATION_ERROR"
		}
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	h.logService.LogInfo(userID, models.LogModuleUser, "change_password", "Password changed", nil)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password changed successfully",
	})
}
