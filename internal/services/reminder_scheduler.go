package services

import (
	"log"
	"sync"
	"time"

	"github.com/taskmatrix/core/internal/database/models"
	"gorm.io/gorm"
)

// DueSoonWindow is how far ahead the scheduler looks for due reminders
const DueSoonWindow = 24 * time.Hour

// ReminderScheduler periodically checks for due and overdue tasks and hands
// them to the notification service. Each task is reminded at most once per
// transition (due, then overdue).
type ReminderScheduler struct {
	db           *gorm.DB
	taskService  *TaskService
	notification *NotificationService
	logService   *LogService
	interval     time.Duration
	stopChan     chan struct{}
	running      bool
	mu           sync.Mutex
	checking     sync.Mutex // prevents overlapping check cycles
}

// NewReminderScheduler creates a new reminder scheduler
func NewReminderScheduler(db *gorm.DB, taskService *TaskService, notification *NotificationService, logService *LogService, interval time.Duration) *ReminderScheduler {
	return &ReminderScheduler{
		db:           db,
		taskService:  taskService,
		notification: notification,
		logService:   logService,
		interval:     interval,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the reminder loop
func (s *ReminderScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Printf("[ReminderScheduler] Starting with interval: %v", s.interval)

	go func() {
		// Give the server a moment to come up before the first check.
		select {
		case <-time.After(10 * time.Second):
			s.checkOnce(time.Now())
		case <-s.stopChan:
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkOnce(time.Now())
			case <-s.stopChan:
				log.Println("[ReminderScheduler] Stopping")
				return
			}
		}
	}()
}

// Stop stops the reminder loop
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopChan)
	s.running = false
}

// checkOnce runs a single reminder cycle
func (s *ReminderScheduler) checkOnce(now time.Time) {
	if !s.checking.TryLock() {
		return
	}
	defer s.checking.Unlock()

	overdue, err := s.taskService.Overdue(now)
	if err != nil {
		s.logService.LogError(0, models.LogModuleNotify, "check", "Overdue query failed", map[string]any{"error": err.Error()})
	} else {
		for i := range overdue {
			task := overdue[i]
			s.notification.NotifyTaskDue(task.UserID, &task, true)
			if err := s.taskService.MarkOverdueNotified(task.ID, now); err != nil {
				s.logService.LogError(task.UserID, models.LogModuleNotify, "check", "Failed to mark overdue reminder", map[string]any{
					"task_id": task.ID,
					"error":   err.Error(),
				})
			}
		}
	}

	dueSoon, err := s.taskService.DueSoon(now, DueSoonWindow)
	if err != nil {
		s.logService.LogError(0, models.LogModuleNotify, "check", "Due-soon query failed", map[string]any{"error": err.Error()})
		return
	}
	for i := range dueSoon {
		task := dueSoon[i]
		s.notification.NotifyTaskDue(task.UserID, &task, false)
		if err := s.taskService.MarkDueNotified(task.ID, now); err != nil {
			s.logService.LogError(task.UserID, models.LogModuleNotify, "check", "Failed to mark due reminder", map[string]any{
				"task_id": task.ID,
				"error":   err.Error(),
			})
		}
	}
}
