package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/taskmatrix/core/internal/database/models"
	"gorm.io/gorm"
)

// LogService handles logging operations
type LogService struct {
	db       *gorm.DB
	logLevel models.LogLevel
}

// NewLogService creates a new LogService instance
func NewLogService(db *gorm.DB) *LogService {
	return &LogService{
		db:       db,
		logLevel: models.LogLevelInfo,
	}
}

// NewLogServiceWithLevel creates a new LogService instance with specified log level
func NewLogServiceWithLevel(db *gorm.DB, level string) *LogService {
	return &LogService{
		db:       db,
		logLevel: parseLogLevel(level),
	}
}

// parseLogLevel converts a string to LogLevel
func parseLogLevel(level string) models.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return models.LogLevelDebug
	case "INFO":
		return models.LogLevelInfo
	case "WARN", "WARNING":
		return models.LogLevelWarn
	case "ERROR":
		return models.LogLevelError
	default:
		return models.LogLevelInfo
	}
}

// SetLogLevel sets the minimum log level
func (s *LogService) SetLogLevel(level string) {
	s.logLevel = parseLogLevel(level)
}

// shouldLog checks if a log entry should be recorded based on log level
func (s *LogService) shouldLog(level models.LogLevel) bool {
	levelPriority := map[models.LogLevel]int{
		models.LogLevelDebug: 0,
		models.LogLevelInfo:  1,
		models.LogLevelWarn:  2,
		models.LogLevelError: 3,
	}
	return levelPriority[level] >= levelPriority[s.logLevel]
}

// LogEntry represents a log entry to be created
type LogEntry struct {
	UserID  uint
	Level   models.LogLevel
	Module  models.LogModule
	Action  string
	Message string
	Details interface{} // Will be serialized to JSON
}

// Log creates a new log entry
func (s *LogService) Log(entry LogEntry) error {
	if !s.shouldLog(entry.Level) {
		return nil
	}

	var detailsJSON string
	if entry.Details != nil {
		bytes, err := json.Marshal(entry.Details)
		if err != nil {
			detailsJSON = "{}"
		} else {
			detailsJSON = string(bytes)
		}
	}

	log := &models.Log{
		UserID:  entry.UserID,
		Level:   string(entry.Level),
		Module:  string(entry.Module),
		Action:  entry.Action,
		Message: entry.Message,
		Details: detailsJSON,
	}

	return s.db.Create(log).Error
}

// LogInfo creates an INFO level log entry
func (s *LogService) LogInfo(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelInfo,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogWarn creates a WARN level log entry
func (s *LogService) LogWarn(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelWarn,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogError creates an ERROR level log entry
func (s *LogService) LogError(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelError,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogLogin logs a login attempt
func (s *LogService) LogLogin(userID uint, username, clientIP string, success bool, loginErr error) error {
	details := map[string]interface{}{
		"username":  username,
		"client_ip": clientIP,
		"success":   success,
	}
	if loginErr != nil {
		details["error"] = loginErr.Error()
	}

	level := models.LogLevelInfo
	message := "User logged in"
	if !success {
		level = models.LogLevelWarn
		message = "Login failed"
	}

	return s.Log(LogEntry{
		UserID:  userID,
		Level:   level,
		Module:  models.LogModuleAuth,
		Action:  "login",
		Message: message,
		Details: details,
	})
}

// LogLogout logs a user logout
func (s *LogService) LogLogout(userID uint) error {
	return s.LogInfo(userID, models.LogModuleAuth, "logout", "User logged out", nil)
}

// LogTokenGenerated logs token generation
func (s *LogService) LogTokenGenerated(userID uint, reason string) error {
	return s.LogInfo(userID, models.LogModuleAuth, "token", "Token generated", map[string]interface{}{
		"reason": reason,
	})
}

// LogAPIRequest logs an API request
func (s *LogService) LogAPIRequest(userID uint, method, path string, status int, durationMs int64, clientIP, userAgent string) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelDebug,
		Module:  models.LogModuleAPI,
		Action:  "request",
		Message: method + " " + path,
		Details: map[string]interface{}{
			"status":      status,
			"duration_ms": durationMs,
			"client_ip":   clientIP,
			"user_agent":  userAgent,
		},
	})
}

// LogInboundEmail logs the outcome of an inbound email. Only correlating
// identifiers are recorded, never raw payload content.
func (s *LogService) LogInboundEmail(userID uint, outcome, identifier string, taskID uint) error {
	level := models.LogLevelInfo
	if outcome != "created" {
		level = models.LogLevelWarn
	}
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   level,
		Module:  models.LogModuleInbound,
		Action:  "receive",
		Message: "Inbound email " + outcome,
		Details: map[string]interface{}{
			"identifier": identifier,
			"task_id":    taskID,
		},
	})
}

// LogTaskEvent logs a task lifecycle event
func (s *LogService) LogTaskEvent(userID uint, action string, taskID uint, title string) error {
	return s.LogInfo(userID, models.LogModuleTask, action, "Task "+action, map[string]interface{}{
		"task_id": taskID,
		"title":   title,
	})
}

// LogNotification logs a push delivery attempt
func (s *LogService) LogNotification(userID uint, correlationID string, endpoint string, sendErr error) error {
	details := map[string]interface{}{
		"correlation_id": correlationID,
		"endpoint":       endpoint,
	}
	if sendErr != nil {
		details["error"] = sendErr.Error()
		return s.Log(LogEntry{
			UserID:  userID,
			Level:   models.LogLevelWarn,
			Module:  models.LogModuleNotify,
			Action:  "send",
			Message: "Push delivery failed",
			Details: details,
		})
	}
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelDebug,
		Module:  models.LogModuleNotify,
		Action:  "send",
		Message: "Push delivered",
		Details: details,
	})
}

// LogListOptions holds options for querying logs
type LogListOptions struct {
	UserID uint
	Level  string
	Module string
	Page   int
	Limit  int
}

// LogListResult holds a page of log entries
type LogListResult struct {
	Logs  []models.Log
	Total int64
	Page  int
	Limit int
}

// ListLogs returns log entries matching the options, newest first
func (s *LogService) ListLogs(opts LogListOptions) (*LogListResult, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 || opts.Limit > 200 {
		opts.Limit = 50
	}

	query := s.db.Model(&models.Log{})
	if opts.UserID != 0 {
		query = query.Where("user_id = ?", opts.UserID)
	}
	if opts.Level != "" {
		query = query.Where("level = ?", strings.ToUpper(opts.Level))
	}
	if opts.Module != "" {
		query = query.Where("module = ?", opts.Module)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var logs []models.Log
	offset := (opts.Page - 1) * opts.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(opts.Limit).Find(&logs).Error; err != nil {
		return nil, err
	}

	return &LogListResult{
		Logs:  logs,
		Total: total,
		Page:  opts.Page,
		Limit: opts.Limit,
	}, nil
}

// CleanupOldLogs deletes log entries older than the retention window
func (s *LogService) CleanupOldLogs(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.Log{})
	return result.RowsAffected, result.Error
}
