package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskmatrix/core/internal/api/middleware"
	"github.com/taskmatrix/core/internal/database/models"
	"github.com/taskmatrix/core/internal/services"
)

// CategoryHandler handles category related requests
type CategoryHandler struct {
	categoryService *services.CategoryService
	logService      *services.LogService
}

// NewCategoryHandler creates a new CategoryHandler instance
func NewCategoryHandler(categoryService *services.CategoryService, logService *services.LogService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logService:      logService,
	}
}

// CategoryRequest represents the create/update request body for a category
type CategoryRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

// ListCategories returns the user's categories
// GET /api/categories
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	categories, err := h.categoryService.List(userID)
	if err != nil {
		internalError(c, "Failed to retrieve categories")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"categories": categories},
	})
}

// CreateCategory creates a category
// POST /api/categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	category, err := h.categoryService.Create(userID, req.Name, req.Color)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCategory):
			badRequest(c, "Invalid category fields")
		case errors.Is(err, services.ErrCategoryExists):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CONFLICT",
					"message": "Category already exists",
				},
			})
		default:
			internalError(c, "Failed to create category")
		}
		return
	}

	h.logService.LogInfo(userID, models.LogModuleCategory, "created", "Category created", gin.H{
		"category_id": category.ID,
		"name":        category.Name,
	})

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    category,
	})
}

// UpdateCategory renames or recolors a category
// PUT /api/categories/:id
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	categoryID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "Invalid category ID")
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	category, err := h.categoryService.Update(userID, uint(categoryID), req.Name, req.Color)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCategoryNotFound):
			notFound(c, "Category not found")
		case errors.Is(err, services.ErrInvalidCategory):
			badRequest(c, "Invalid category fields")
		case errors.Is(err, services.ErrCategoryExists):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CONFLICT",
					"message": "Category already exists",
				},
			})
		default:
			internalError(c, "Failed to update category")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    category,
	})
}

// DeleteCategory removes a category, detaching its tasks
// DELETE /api/categories/:id
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		unauthorized(c)
		return
	}

	categoryID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "Invalid category ID")
		return
	}

	if err := h.categoryService.Delete(userID, uint(categoryID)); err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			notFound(c, "Category not found")
			return
		}
		internalError(c, "Failed to delete category")
		return
	}

	h.logService.LogInfo(userID, models.LogModuleCategory, "deleted", "Category deleted", gin.H{
		"category_id": categoryID,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Category deleted",
	})
}
