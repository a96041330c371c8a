package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskmatrix/core/internal/database/models"
)

func TestLogLevelFiltering(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLogServiceWithLevel(db, "WARN")

	require.NoError(t, svc.LogInfo(1, models.LogModuleTask, "create", "below threshold", nil))
	require.NoError(t, svc.LogWarn(1, models.LogModuleTask, "create", "at threshold", nil))
	require.NoError(t, svc.LogError(1, models.LogModuleTask, "create", "above threshold", nil))

	result, err := svc.ListLogs(LogListOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Total)
	for _, entry := range result.Logs {
		assert.NotEqual(t, string(models.LogLevelInfo), entry.Level)
	}
}

func TestLogInboundEmailRecordsIdentifiersOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLogService(db)

	require.NoError(t, svc.LogInboundEmail(7, "created", "bob", 42))
	require.NoError(t, svc.LogInboundEmail(0, "unresolved", "nobody", 0))

	result, err := svc.ListLogs(LogListOptions{Module: string(models.LogModuleInbound)})
	require.NoError(t, err)
	require.EqualValues(t, 2, result.Total)

	// Rejections log at WARN so operators can spot misdirected mail.
	byMessage := map[string]models.Log{}
	for _, entry := range result.Logs {
		byMessage[entry.Message] = entry
	}
	assert.Equal(t, string(models.LogLevelInfo), byMessage["Inbound email created"].Level)
	assert.Equal(t, string(models.LogLevelWarn), byMessage["Inbound email unresolved"].Level)
	assert.Contains(t, byMessage["Inbound email created"].Details, `"identifier":"bob"`)
}

func TestListLogsFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLogService(db)

	require.NoError(t, svc.LogInfo(1, models.LogModuleAuth, "login", "first", nil))
	require.NoError(t, svc.LogInfo(2, models.LogModuleTask, "create", "second", nil))
	require.NoError(t, svc.LogError(2, models.LogModuleTask, "create", "third", nil))

	byUser, err := svc.ListLogs(LogListOptions{UserID: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 2, byUser.Total)

	byLevel, err := svc.ListLogs(LogListOptions{Level: "error"})
	require.NoError(t, err)
	require.EqualValues(t, 1, byLevel.Total)
	assert.Equal(t, "third", byLevel.Logs[0].Message)

	byModule, err := svc.ListLogs(LogListOptions{Module: string(models.LogModuleAuth)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, byModule.Total)
}
