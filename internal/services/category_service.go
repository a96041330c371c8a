package services

import (
	"errors"
	"strings"

	"github.com/taskmatrix/core/internal/database/models"
	"gorm.io/gorm"
)

var (
	// ErrCategoryNotFound indicates the category was not found
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryExists indicates the user already has a category with that name
	ErrCategoryExists = errors.New("category already exists")
	// ErrInvalidCategory indicates the category input failed validation
	ErrInvalidCategory = errors.New("invalid category")
)

// CategoryService handles category-related business logic
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryService instance
func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

// Create creates a category for a user
func (s *CategoryService) Create(userID uint, name, color string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, ErrInvalidCategory
	}

	var existing models.Category
	if err := s.db.Where("user_id = ? AND name = ?", userID, name).First(&existing).Error; err == nil {
		return nil, ErrCategoryExists
	}

	category := &models.Category{
		UserID: userID,
		Name:   name,
		Color:  color,
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// Get returns a category owned by the user
func (s *CategoryService) Get(userID, categoryID uint) (*models.Category, error) {
	var category models.Category
	err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// List returns all of a user's categories
func (s *CategoryService) List(userID uint) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.Where("user_id = ?", userID).Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Update renames or recolors a category
func (s *CategoryService) Update(userID, categoryID uint, name, color string) (*models.Category, error) {
	category, err := s.Get(userID, categoryID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, ErrInvalidCategory
	}

	var existing models.Category
	if err := s.db.Where("user_id = ? AND name = ? AND id <> ?", userID, name, categoryID).First(&existing).Error; err == nil {
		return nil, ErrCategoryExists
	}

	category.Name = name
	category.Color = color
	if err := s.db.Save(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes a category. Its tasks are detached, not deleted.
func (s *CategoryService) Delete(userID, categoryID uint) error {
	category, err := s.Get(userID, categoryID)
	if err != nil {
		return err
	}

	if err := s.db.Model(&models.Task{}).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		Update("category_id", nil).Error; err != nil {
		return err
	}

	return s.db.Delete(category).Error
}
