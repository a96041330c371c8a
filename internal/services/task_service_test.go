package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskmatrix/core/internal/database"
	"github.com/taskmatrix/core/internal/database/models"
	"github.com/taskmatrix/core/internal/mailin"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Initialize(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u, err := NewUserService(db).CreateUser(username, "password123", username)
	require.NoError(t, err)
	return u
}

func TestTaskServiceCreate(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	svc := NewTaskService(db)

	task, err := svc.Create(u.ID, TaskInput{Title: "  Buy milk  ", Description: "2 liters"})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, models.TaskAreaManual, task.Area)
	assert.Equal(t, models.ImportanceDefault, task.Importance)
	assert.Equal(t, models.TaskStatusOpen, task.Status)

	_, err = svc.Create(u.ID, TaskInput{Title: "   "})
	assert.ErrorIs(t, err, ErrInvalidTask)

	missing := uint(9999)
	_, err = svc.Create(u.ID, TaskInput{Title: "with category", CategoryID: &missing})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestTaskServiceCreateFromEmailKeepsProvenance(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	svc := NewTaskService(db)

	receivedAt := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	due := receivedAt.AddDate(0, 0, 1)
	draft := mailin.TaskDraft{
		Title:       "Server is down",
		Description: "The production API is failing.",
		Area:        mailin.AreaEmail,
		Importance:  9,
		DueDate:     &due,
		Source: mailin.EmailSource{
			Sender:          "ops@example.com",
			ReceivedAt:      receivedAt,
			OriginalSubject: "URGENT: Server is down",
		},
	}

	task, err := svc.CreateFromEmail(u.ID, draft)
	require.NoError(t, err)
	assert.Equal(t, models.TaskAreaEmail, task.Area)
	assert.Equal(t, "ops@example.com", task.EmailSender)
	assert.Equal(t, "URGENT: Server is down", task.OriginalSubject)
	require.NotNil(t, task.EmailReceivedAt)
	assert.True(t, task.EmailReceivedAt.Equal(receivedAt))

	// Reload and make sure nothing rewrote the provenance on the way in.
	stored, err := svc.Get(u.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", stored.EmailSender)
	assert.Equal(t, "URGENT: Server is down", stored.OriginalSubject)
}

func TestTaskServiceCompleteAndReopen(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	svc := NewTaskService(db)

	task, err := svc.Create(u.ID, TaskInput{Title: "Write minutes"})
	require.NoError(t, err)

	done, err := svc.Complete(u.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDone, done.Status)
	assert.NotNil(t, done.CompletedAt)

	reopened, err := svc.Reopen(u.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusOpen, reopened.Status)
	assert.Nil(t, reopened.CompletedAt)
}

func TestTaskServiceOwnershipIsEnforced(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice")
	mallory := createTestUser(t, db, "mallory")
	svc := NewTaskService(db)

	task, err := svc.Create(alice.ID, TaskInput{Title: "Private task"})
	require.NoError(t, err)

	_, err = svc.Get(mallory.ID, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	err = svc.Delete(mallory.ID, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskServiceMatrixView(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	svc := NewTaskService(db)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	soon := now.Add(24 * time.Hour)
	far := now.Add(14 * 24 * time.Hour)

	mk := func(title string, importance int, due *time.Time) {
		_, err := svc.Create(u.ID, TaskInput{Title: title, Importance: importance, DueDate: due})
		require.NoError(t, err)
	}
	mk("do first", 8, &soon)
	mk("schedule", 8, &far)
	mk("delegate", 2, &soon)
	mk("eliminate", 2, nil)

	// Done tasks never appear in the matrix.
	doneTask, err := svc.Create(u.ID, TaskInput{Title: "already done", Importance: 9, DueDate: &soon})
	require.NoError(t, err)
	_, err = svc.Complete(u.ID, doneTask.ID)
	require.NoError(t, err)

	matrix, err := svc.MatrixView(u.ID, now)
	require.NoError(t, err)

	titles := func(tasks []models.Task) []string {
		out := make([]string, 0, len(tasks))
		for _, task := range tasks {
			out = append(out, task.Title)
		}
		return out
	}
	assert.Equal(t, []string{"do first"}, titles(matrix.DoFirst))
	assert.Equal(t, []string{"schedule"}, titles(matrix.Schedule))
	assert.Equal(t, []string{"delegate"}, titles(matrix.Delegate))
	assert.Equal(t, []string{"eliminate"}, titles(matrix.Eliminate))
}

func TestTaskServiceListFilters(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	svc := NewTaskService(db)

	_, err := svc.Create(u.ID, TaskInput{Title: "groceries run"})
	require.NoError(t, err)
	_, err = svc.CreateFromEmail(u.ID, mailin.TaskDraft{
		Title:       "from mail",
		Description: "body",
		Importance:  5,
		Source:      mailin.EmailSource{Sender: "a@b.co", ReceivedAt: time.Now()},
	})
	require.NoError(t, err)

	all, err := svc.List(u.ID, TaskListOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)

	emailOnly, err := svc.List(u.ID, TaskListOptions{Area: models.TaskAreaEmail})
	require.NoError(t, err)
	assert.EqualValues(t, 1, emailOnly.Total)
	assert.Equal(t, "from mail", emailOnly.Tasks[0].Title)

	search, err := svc.List(u.ID, TaskListOptions{Search: "groceries"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, search.Total)
}

func TestTaskServiceUpdateRearmsReminders(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	svc := NewTaskService(db)

	now := time.Now().UTC()
	due := now.Add(12 * time.Hour)
	task, err := svc.Create(u.ID, TaskInput{Title: "remind me", Importance: 5, DueDate: &due})
	require.NoError(t, err)

	require.NoError(t, svc.MarkDueNotified(task.ID, now))
	pending, err := svc.DueSoon(now, 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, pending)

	newDue := now.Add(20 * time.Hour)
	_, err = svc.Update(u.ID, task.ID, TaskInput{Title: "remind me", Importance: 5, DueDate: &newDue})
	require.NoError(t, err)

	pending, err = svc.DueSoon(now, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, task.ID, pending[0].ID)
}

func TestTaskServiceOverdueMarksOnce(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	svc := NewTaskService(db)

	now := time.Now().UTC()
	past := now.Add(-2 * time.Hour)
	task, err := svc.Create(u.ID, TaskInput{Title: "late", Importance: 5, DueDate: &past})
	require.NoError(t, err)

	overdue, err := svc.Overdue(now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)

	require.NoError(t, svc.MarkOverdueNotified(task.ID, now))
	overdue, err = svc.Overdue(now)
	require.NoError(t, err)
	assert.Empty(t, overdue)
}
