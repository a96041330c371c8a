package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/taskmatrix/core/internal/database/models"
	"gorm.io/gorm"
)

var (
	// ErrSubscriptionNotFound indicates the push subscription was not found
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrInvalidSubscription indicates the subscription input failed validation
	ErrInvalidSubscription = errors.New("invalid subscription")
)

// NotificationService delivers browser push notifications. Delivery is
// fire-and-forget: a failed endpoint is logged and skipped, never retried
// inline, and never blocks the task flow that triggered it.
type NotificationService struct {
	db         *gorm.DB
	client     *resty.Client
	logService *LogService
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(db *gorm.DB, logService *LogService) *NotificationService {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &NotificationService{
		db:         db,
		client:     client,
		logService: logService,
	}
}

// Subscribe registers a push endpoint for a user. Re-registering the same
// endpoint refreshes its key material instead of duplicating it.
func (s *NotificationService) Subscribe(userID uint, endpoint, auth, p256dh string) (*models.PushSubscription, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || !strings.HasPrefix(endpoint, "https://") {
		return nil, ErrInvalidSubscription
	}

	var existing models.PushSubscription
	err := s.db.Where("user_id = ? AND endpoint = ?", userID, endpoint).First(&existing).Error
	if err == nil {
		existing.Auth = auth
		existing.P256dh = p256dh
		if err := s.db.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := &models.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		Auth:     auth,
		P256dh:   p256dh,
	}
	if err := s.db.Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

// Unsubscribe removes a push subscription
func (s *NotificationService) Unsubscribe(userID, subscriptionID uint) error {
	result := s.db.Where("id = ? AND user_id = ?", subscriptionID, userID).Delete(&models.PushSubscription{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// ListSubscriptions returns a user's push subscriptions
func (s *NotificationService) ListSubscriptions(userID uint) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	if err := s.db.Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// pushMessage is the payload posted to each subscription endpoint
type pushMessage struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Send delivers a notification to all of a user's subscriptions in the
// background. It returns immediately; outcomes are visible in the logs only.
func (s *NotificationService) Send(userID uint, title, body string, metadata map[string]any) {
	go s.sendNow(userID, title, body, metadata)
}

func (s *NotificationService) sendNow(userID uint, title, body string, metadata map[string]any) {
	subs, err := s.ListSubscriptions(userID)
	if err != nil {
		s.logService.LogError(userID, models.LogModuleNotify, "send", "Failed to load subscriptions", map[string]any{
			"error": err.Error(),
		})
		return
	}

	msg := pushMessage{
		ID:       uuid.NewString(),
		Title:    title,
		Body:     body,
		Metadata: metadata,
	}

	for _, sub := range subs {
		resp, err := s.client.R().SetBody(msg).Post(sub.Endpoint)
		if err == nil && resp.IsError() {
			err = fmt.Errorf("push endpoint returned %s", resp.Status())
		}
		s.logService.LogNotification(userID, msg.ID, sub.Endpoint, err)
	}
}

// NotifyTaskCreated announces a newly created email-origin task
func (s *NotificationService) NotifyTaskCreated(userID uint, task *models.Task) {
	s.Send(userID, "New task from email", task.Title, map[string]any{
		"task_id": task.ID,
		"area":    task.Area,
	})
}

// NotifyTaskDue announces a task approaching or past its due date
func (s *NotificationService) NotifyTaskDue(userID uint, task *models.Task, overdue bool) {
	title := "Task due soon"
	if overdue {
		title = "Task overdue"
	}
	metadata := map[string]any{
		"task_id": task.ID,
		"overdue": overdue,
	}
	if task.DueDate != nil {
		metadata["due_date"] = task.DueDate.Format(time.RFC3339)
	}
	s.Send(userID, title, task.Title, metadata)
}
