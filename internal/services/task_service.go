package services

import (
	"errors"
	"strings"
	"time"

	"github.com/taskmatrix/core/internal/database/models"
	"github.com/taskmatrix/core/internal/mailin"
	"gorm.io/gorm"
)

var (
	// ErrTaskNotFound indicates the task was not found
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidTask indicates the task input failed validation
	ErrInvalidTask = errors.New("invalid task")
	// ErrStorePermission indicates the store rejected the write for permission reasons
	ErrStorePermission = errors.New("task store permission denied")
	// ErrStoreQuota indicates the store rejected the write for quota/capacity reasons
	ErrStoreQuota = errors.New("task store quota exceeded")
)

// TaskService handles task-related business logic
type TaskService struct {
	db *gorm.DB
}

// NewTaskService creates a new TaskService instance
func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

// TaskInput holds the user-editable fields of a task
type TaskInput struct {
	Title       string
	Description string
	CategoryID  *uint
	Importance  int
	DueDate     *time.Time
}

// Create creates a manually entered task for a user
func (s *TaskService) Create(userID uint, input TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > 200 {
		return nil, ErrInvalidTask
	}
	if input.CategoryID != nil {
		var category models.Category
		if err := s.db.Where("id = ? AND user_id = ?", *input.CategoryID, userID).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
	}

	importance := input.Importance
	if importance == 0 {
		importance = models.ImportanceDefault
	}

	task := &models.Task{
		UserID:      userID,
		CategoryID:  input.CategoryID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Area:        models.TaskAreaManual,
		Importance:  mailin.ClampImportance(importance),
		Status:      models.TaskStatusOpen,
		DueDate:     input.DueDate,
	}

	if err := s.db.Create(task).Error; err != nil {
		return nil, categorizeStoreError(err)
	}
	return task, nil
}

// CreateFromEmail persists a task draft derived from an inbound email. The
// draft is owned by the store from here on; the provenance block is stored
// verbatim and never mutated afterwards.
func (s *TaskService) CreateFromEmail(userID uint, draft mailin.TaskDraft) (*models.Task, error) {
	receivedAt := draft.Source.ReceivedAt
	task := &models.Task{
		UserID:          userID,
		Title:           draft.Title,
		Description:     draft.Description,
		Area:            models.TaskAreaEmail,
		Importance:      mailin.ClampImportance(draft.Importance),
		Status:          models.TaskStatusOpen,
		DueDate:         draft.DueDate,
		EmailSender:     draft.Source.Sender,
		EmailReceivedAt: &receivedAt,
		OriginalSubject: draft.Source.OriginalSubject,
	}

	if err := s.db.Create(task).Error; err != nil {
		return nil, categorizeStoreError(err)
	}
	return task, nil
}

// categorizeStoreError maps a store failure onto the operational taxonomy:
// permission, quota, or other. sqlite reports these in the error text.
func categorizeStoreError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "readonly") || strings.Contains(msg, "permission") || strings.Contains(msg, "access denied"):
		return ErrStorePermission
	case strings.Contains(msg, "disk is full") || strings.Contains(msg, "database or disk is full") || strings.Contains(msg, "quota"):
		return ErrStoreQuota
	}
	return err
}

// Get returns a task owned by the user
func (s *TaskService) Get(userID, taskID uint) (*models.Task, error) {
	var task models.Task
	err := s.db.Preload("Category").Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// TaskListOptions holds filters for listing tasks
type TaskListOptions struct {
	Status     string
	Area       string
	CategoryID uint
	Search     string
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
}

// TaskListResult holds a page of tasks
type TaskListResult struct {
	Tasks []models.Task
	Total int64
	Page  int
	Limit int
}

// List returns tasks for a user matching the options
func (s *TaskService) List(userID uint, opts TaskListOptions) (*TaskListResult, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 || opts.Limit > 200 {
		opts.Limit = 50
	}

	query := s.db.Model(&models.Task{}).Where("user_id = ?", userID)
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.Area != "" {
		query = query.Where("area = ?", opts.Area)
	}
	if opts.CategoryID != 0 {
		query = query.Where("category_id = ?", opts.CategoryID)
	}
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	order := taskSortClause(opts.SortBy, opts.SortOrder)
	var tasks []models.Task
	offset := (opts.Page - 1) * opts.Limit
	if err := query.Preload("Category").Order(order).Offset(offset).Limit(opts.Limit).Find(&tasks).Error; err != nil {
		return nil, err
	}

	return &TaskListResult{
		Tasks: tasks,
		Total: total,
		Page:  opts.Page,
		Limit: opts.Limit,
	}, nil
}

// taskSortClause whitelists sortable columns so the order clause never
// interpolates client input directly.
func taskSortClause(sortBy, sortOrder string) string {
	column := "created_at"
	switch sortBy {
	case "due_date", "importance", "title", "created_at", "updated_at":
		column = sortBy
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

// Update modifies a task's editable fields
func (s *TaskService) Update(userID, taskID uint, input TaskInput) (*models.Task, error) {
	task, err := s.Get(userID, taskID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > 200 {
		return nil, ErrInvalidTask
	}
	if input.CategoryID != nil {
		var category models.Category
		if err := s.db.Where("id = ? AND user_id = ?", *input.CategoryID, userID).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
	}

	task.Title = title
	task.Description = strings.TrimSpace(input.Description)
	task.CategoryID = input.CategoryID
	task.Importance = mailin.ClampImportance(input.Importance)
	task.DueDate = input.DueDate
	// A changed due date re-arms reminders.
	task.DueNotifiedAt = nil
	task.OverdueNotifiedAt = nil

	if err := s.db.Save(task).Error; err != nil {
		return nil, categorizeStoreError(err)
	}
	return task, nil
}

// Complete marks a task done
func (s *TaskService) Complete(userID, taskID uint) (*models.Task, error) {
	task, err := s.Get(userID, taskID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	task.Status = models.TaskStatusDone
	task.CompletedAt = &now
	if err := s.db.Save(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// Reopen marks a done task open again
func (s *TaskService) Reopen(userID, taskID uint) (*models.Task, error) {
	task, err := s.Get(userID, taskID)
	if err != nil {
		return nil, err
	}
	task.Status = models.TaskStatusOpen
	task.CompletedAt = nil
	if err := s.db.Save(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task
func (s *TaskService) Delete(userID, taskID uint) error {
	task, err := s.Get(userID, taskID)
	if err != nil {
		return err
	}
	return s.db.Delete(task).Error
}

// Matrix groups a user's open tasks into the four Eisenhower quadrants
type Matrix struct {
	DoFirst   []models.Task `json:"do_first"`  // important and urgent
	Schedule  []models.Task `json:"schedule"`  // important, not urgent
	Delegate  []models.Task `json:"delegate"`  // urgent, not important
	Eliminate []models.Task `json:"eliminate"` // neither
}

// MatrixView builds the Eisenhower matrix for a user's open tasks.
// Importance >= 6 counts as important; a due date that is overdue or inside
// the urgency window counts as urgent.
func (s *TaskService) MatrixView(userID uint, now time.Time) (*Matrix, error) {
	var tasks []models.Task
	err := s.db.Preload("Category").
		Where("user_id = ? AND status = ?", userID, models.TaskStatusOpen).
		Order("due_date IS NULL, due_date ASC, importance DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	matrix := &Matrix{
		DoFirst:   []models.Task{},
		Schedule:  []models.Task{},
		Delegate:  []models.Task{},
		Eliminate: []models.Task{},
	}
	for _, task := range tasks {
		important := task.IsImportant()
		urgent := task.IsUrgent(now)
		switch {
		case important && urgent:
			matrix.DoFirst = append(matrix.DoFirst, task)
		case important:
			matrix.Schedule = append(matrix.Schedule, task)
		case urgent:
			matrix.Delegate = append(matrix.Delegate, task)
		default:
			matrix.Eliminate = append(matrix.Eliminate, task)
		}
	}
	return matrix, nil
}

// DueSoon returns open tasks due within the window that have not had a due
// reminder yet
func (s *TaskService) DueSoon(now time.Time, window time.Duration) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.Where(
		"status = ? AND due_date IS NOT NULL AND due_date > ? AND due_date <= ? AND due_notified_at IS NULL",
		models.TaskStatusOpen, now, now.Add(window),
	).Find(&tasks).Error
	return tasks, err
}

// Overdue returns open tasks past their due date that have not had an
// overdue reminder yet
func (s *TaskService) Overdue(now time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.Where(
		"status = ? AND due_date IS NOT NULL AND due_date <= ? AND overdue_notified_at IS NULL",
		models.TaskStatusOpen, now,
	).Find(&tasks).Error
	return tasks, err
}

// MarkDueNotified records that a due reminder was sent
func (s *TaskService) MarkDueNotified(taskID uint, at time.Time) error {
	return s.db.Model(&models.Task{}).Where("id = ?", taskID).Update("due_notified_at", at).Error
}

// MarkOverdueNotified records that an overdue reminder was sent
func (s *TaskService) MarkOverdueNotified(taskID uint, at time.Time) error {
	return s.db.Model(&models.Task{}).Where("id = ?", taskID).Update("overdue_notified_at", at).Error
}
