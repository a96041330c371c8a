package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskmatrix/core/internal/api/middleware"
	"github.com/taskmatrix/core/internal/database/models"
	"github.com/taskmatrix/core/internal/services"
)

// TaskHandler handles task related requests
type TaskHandler struct {
	taskService *services.TaskService
	logService  *services.LogService
}

// NewTaskHandler creates a new TaskHandler instance
func NewTaskHandler(taskService *services.TaskService, logService *services.LogService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logService:  logService,
	}
}

// TaskRequest represents the create/update request body for a task
type TaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	CategoryID  *uint  `json:"category_id"`
	Importance  int    `json:"importance"`
	DueDate     *int64 `json:"due_date"` // unix seconds
}

// TaskResponse represents a task in API responses
type TaskResponse struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Area            string `json:"area"`
	Importance      int    `json:"importance"`
	Status          string `json:"status"`
	CategoryID      *uint  `json:"category_id,omitempty"`
	CategoryName    string `json:"category_name,omitempty"`
	DueDate         *int64 `json:"due_date,omitempty"`
	CompletedAt     *int64 `json:"completed_at,omitempty"`
	EmailSender     string `json:"email_sender,omitempty"`
	EmailReceivedAt *int64 `json:"email_received_at,omitempty"`
	OriginalSubject string `json:"original_subject,omitempty"`
	CreatedAt       int64  `json:"created_at"`
}

// toTaskResponse converts a Task model to TaskResponse
func toTaskResponse(task *models.Task) TaskResponse {
	response := TaskResponse{
		ID:              task.ID,
		Title:           task.Title,
		Description:     task.Description,
		Area:            task.Area,
		Importance:      task.Importance,
		Status:          task.Status,
		CategoryID:      task.CategoryID,
		EmailSender:     task.EmailSender,
		OriginalSubject: task.OriginalSubject,
		CreatedAt:       task.CreatedAt.Unix(),
	}
	if task.Category != nil {
		response.CategoryName = task.Category.Name
	}
	if task.DueDate != nil {
		due := task.DueDate.Unix()
		response.DueDate = &due
	}
	if task.CompletedAt != nil {
		done := task.CompletedAt.Unix()
		response.CompletedAt = &done
	}
	if task.EmailReceivedAt != nil {
		received := task.EmailReceivedAt.Unix()
		response.EmailReceivedAt = &received
	}
	return response
}

func (r TaskRequest) toInput() services.TaskInput {
	input := services.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		CategoryID:  r.CategoryID,
		Importance:  r.Importance,
	}
	if r.DueDate != nil {
		due := time.Unix(*r.DueDate, 0)
		input.DueDate = &due
	}
	return input
}

// ListTasks returns tasks for the authenticated user
// GET /api/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	categoryID, _ := strconv.ParseUint(c.Query("category_id"), 10, 32)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	opts := services.TaskListOptions{
		Status:     c.Query("status"),
		Area:       c.Query("area"),
		CategoryID: uint(categoryID),
		Search:     c.Query("search"),
		Page:       page,
		Limit:      limit,
		SortBy:     c.DefaultQuery("sort", "created_at"),
		SortOrder:  c.DefaultQuery("order", "desc"),
	}

	result, err := h.taskService.List(userID, opts)
	if err != nil {
		internalError(c, "Failed to retrieve tasks")
		return
	}

	tasks := make([]TaskResponse, 0, len(result.Tasks))
	for i := range result.Tasks {
		tasks = append(tasks, toTaskResponse(&result.Tasks[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total": result.Total,
			"page":  result.Page,
			"limit": result.Limit,
			"tasks": tasks,
		},
	})
}

// GetTask returns a single task
// GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "Invalid task ID")
		return
	}

	task, err := h.taskService.Get(userID, uint(taskID))
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			notFound(c, "Task not found")
			return
		}
		internalError(c, "Failed to retrieve task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toTaskResponse(task),
	})
}

// CreateTask creates a task
// POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.Create(userID, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidTask):
			badRequest(c, "Invalid task fields")
		case errors.Is(err, services.ErrCategoryNotFound):
			notFound(c, "Category not found")
		default:
			internalError(c, "Failed to create task")
		}
		return
	}

	h.logService.LogTaskEvent(userID, "created", task.ID, task.Title)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    toTaskResponse(task),
	})
}

// UpdateTask updates a task
// PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "Invalid task ID")
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.Update(userID, uint(taskID), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTaskNotFound):
			notFound(c, "Task not found")
		case errors.Is(err, services.ErrInvalidTask):
			badRequest(c, "Invalid task fields")
		case errors.Is(err, services.ErrCategoryNotFound):
			notFound(c, "Category not found")
		default:
			internalError(c, "Failed to update task")
		}
		return
	}

	h.logService.LogTaskEvent(userID, "updated", task.ID, task.Title)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toTaskResponse(task),
	})
}

// CompleteTask marks a task done
// PUT /api/tasks/:id/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	h.transition(c, "completed", h.taskService.Complete)
}

// ReopenTask marks a done task open again
// PUT /api/tasks/:id/reopen
func (h *TaskHandler) ReopenTask(c *gin.Context) {
	h.transition(c, "reopened", h.taskService.Reopen)
}

func (h *TaskHandler) transition(c *gin.Context, action string, op func(uint, uint) (*models.Task, error)) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "Invalid task ID")
		return
	}

	task, err := op(userID, uint(taskID))
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			notFound(c, "Task not found")
			return
		}
		internalError(c, "Failed to update task")
		return
	}

	h.logService.LogTaskEvent(userID, action, task.ID, task.Title)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toTaskResponse(task),
	})
}

// DeleteTask removes a task
// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "Invalid task ID")
		return
	}

	if err := h.taskService.Delete(userID, uint(taskID)); err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			notFound(c, "Task not found")
			return
		}
		internalError(c, "Failed to delete task")
		return
	}

	h.logService.LogTaskEvent(userID, "deleted", uint(taskID), "")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task deleted",
	})
}

// GetMatrix returns the Eisenhower matrix view of open tasks
// GET /api/tasks/matrix
func (h *TaskHandler) GetMatrix(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	matrix, err := h.taskService.MatrixView(userID, time.Now())
	if err != nil {
		internalError(c, "Failed to build matrix")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"do_first":  taskResponses(matrix.DoFirst),
			"schedule":  taskResponses(matrix.Schedule),
			"delegate":  taskResponses(matrix.Delegate),
			"eliminate": taskResponses(matrix.Eliminate),
		},
	})
}

func taskResponses(tasks []models.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskResponse(&tasks[i]))
	}
	return out
}

// Shared error responders keeping the envelope consistent across handlers

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "AUTH_FAILED",
			"message": "User not authenticated",
		},
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": message,
		},
	})
}

func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "NOT_FOUND",
			"message": message,
		},
	})
}

func internalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": message,
		},
	})
}
