package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskmatrix/core/internal/database/models"
	"github.com/taskmatrix/core/internal/mailin"
	"github.com/taskmatrix/core/internal/services"
)

// maxInboundBody caps how much of an inbound request body is read.
// Forwarded-email webhooks can be large; anything beyond this is not worth
// scanning anyway since the normalizer bounds its own work.
const maxInboundBody = 10 << 20

// InboundHandler turns inbound email webhooks into tasks. The mail provider
// may redeliver the same payload; every path through here is safe to repeat.
type InboundHandler struct {
	userService         *services.UserService
	taskService         *services.TaskService
	notificationService *services.NotificationService
	logService          *services.LogService
}

// NewInboundHandler creates a new InboundHandler instance
func NewInboundHandler(userService *services.UserService, taskService *services.TaskService, notificationService *services.NotificationService, logService *services.LogService) *InboundHandler {
	return &InboundHandler{
		userService:         userService,
		taskService:         taskService,
		notificationService: notificationService,
		logService:          logService,
	}
}

// ReceiveEmail accepts an email webhook payload of any supported shape and
// creates a task for the recipient user.
// POST /api/inbound/email
func (h *InboundHandler) ReceiveEmail(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxInboundBody))
	if err != nil || len(raw) == 0 {
		badRequest(c, "Empty request body")
		return
	}

	// Decode as JSON when possible; otherwise hand the raw text to the
	// normalizer, which pattern-matches opaque bodies.
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		body = string(raw)
	}

	email := mailin.Normalize(body)

	from := mailin.SanitizeEmailAddress(email.From)
	to := mailin.SanitizeEmailAddress(email.To)
	subjectPresent := strings.TrimSpace(email.Subject) != ""

	fields := gin.H{}
	if from == "" {
		fields["from"] = "invalid"
	}
	if to == "" {
		fields["to"] = "invalid"
	}
	if !subjectPresent {
		fields["subject"] = "invalid"
	}
	if len(fields) > 0 {
		h.logService.LogInboundEmail(0, "rejected", "", 0)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Required email fields missing or invalid",
				"fields":  fields,
			},
		})
		return
	}

	// The identifier keeps its original casing; the user service owns the
	// case-insensitive fallback.
	identifier := mailin.LocalPart(email.To)
	user, err := h.userService.ResolveByInboxAlias(identifier)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			h.logService.LogInboundEmail(0, "unresolved", identifier, 0)
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":       "USER_NOT_FOUND",
					"message":    "No user matches the recipient address",
					"identifier": identifier,
				},
			})
			return
		}
		internalError(c, "Failed to resolve user")
		return
	}

	sanitized := mailin.NormalizedEmail{
		From:    from,
		To:      to,
		Subject: email.Subject,
		Text:    email.Text,
		HTML:    email.HTML,
	}
	draft := mailin.ExtractDraft(sanitized, time.Now())

	task, err := h.taskService.CreateFromEmail(user.ID, draft)
	if err != nil {
		code := "STORE_ERROR"
		switch {
		case errors.Is(err, services.ErrStorePermission):
			code = "STORE_PERMISSION"
		case errors.Is(err, services.ErrStoreQuota):
			code = "STORE_QUOTA"
		}
		h.logService.LogError(user.ID, models.LogModuleTask, "create_from_email", "Task store write failed", gin.H{
			"category":   code,
			"identifier": identifier,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": "Failed to store task",
				"user_id": user.ID,
			},
		})
		return
	}

	h.logService.LogInboundEmail(user.ID, "created", identifier, task.ID)
	h.notificationService.NotifyTaskCreated(user.ID, task)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"task_id":    task.ID,
			"title":      task.Title,
			"area":       task.Area,
			"importance": task.Importance,
			"status":     task.Status,
		},
	})
}
