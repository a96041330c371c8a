package models

import (
	"time"
)

// Task represents a task owned by a user
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	CategoryID  *uint      `gorm:"index" json:"category_id,omitempty"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Area        string     `gorm:"size:20;index;default:'manual'" json:"area"`
	Importance  int        `gorm:"default:5" json:"importance"`
	Status      string     `gorm:"size:20;index;default:'open'" json:"status"`
	DueDate     *time.Time `gorm:"index" json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Email provenance, populated only for email-origin tasks.
	// OriginalSubject keeps the pre-cleaning subject line for audit.
	EmailSender     string     `gorm:"size:255" json:"email_sender,omitempty"`
	EmailReceivedAt *time.Time `json:"email_received_at,omitempty"`
	OriginalSubject string     `gorm:"size:500" json:"original_subject,omitempty"`

	// Reminder bookkeeping used by the reminder scheduler so a task is
	// notified at most once per transition.
	DueNotifiedAt     *time.Time `json:"-"`
	OverdueNotifiedAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// Task status values
const (
	TaskStatusOpen = "open"
	TaskStatusDone = "done"
)

// Task area values. AreaEmail is a reserved tag for tasks created from
// inbound email, distinct from user-defined categories.
const (
	TaskAreaManual = "manual"
	TaskAreaEmail  = "email"
)

// Importance bounds
const (
	ImportanceMin     = 1
	ImportanceMax     = 10
	ImportanceDefault = 5
)

// IsOpen reports whether the task is still open
func (t *Task) IsOpen() bool {
	return t.Status == TaskStatusOpen
}

// IsImportant reports whether the task falls in the "important" half of the
// Eisenhower matrix
func (t *Task) IsImportant() bool {
	return t.Importance >= 6
}

// IsUrgent reports whether the task is overdue or due within the urgency
// window relative to now
func (t *Task) IsUrgent(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(now.Add(UrgencyWindow))
}

// UrgencyWindow is how far ahead a due date still counts as urgent
const UrgencyWindow = 48 * time.Hour
