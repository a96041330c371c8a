package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/taskmatrix/core/internal/database"
	"github.com/taskmatrix/core/internal/mailin"
)

// For any draft derived from an email, the persisted task carries a bounded
// importance score and keeps the provenance block untouched.

func TestProperty_EmailTaskPersistence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	titleGen := gen.SliceOfN(20, gen.AlphaChar()).Map(func(chars []rune) string {
		return string(chars)
	})

	senderGen := gen.SliceOfN(8, gen.AlphaLowerChar()).Map(func(chars []rune) string {
		return string(chars) + "@example.com"
	})

	importanceGen := gen.IntRange(-5, 20)

	properties.Property("persisted_importance_always_in_range", prop.ForAll(
		func(title, sender string, importance int) bool {
			tempDir, err := os.MkdirTemp("", "taskmatrix_email_task_test_*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(tempDir)

			dbPath := filepath.Join(tempDir, "test.db")
			db, err := database.Initialize(dbPath)
			if err != nil {
				return false
			}
			sqlDB, _ := db.DB()
			defer sqlDB.Close()

			owner, err := NewUserService(db).CreateUser("owner", "password123", "Owner")
			if err != nil {
				return false
			}

			receivedAt := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
			task, err := NewTaskService(db).CreateFromEmail(owner.ID, mailin.TaskDraft{
				Title:       title,
				Description: "body",
				Area:        mailin.AreaEmail,
				Importance:  importance,
				Source: mailin.EmailSource{
					Sender:          sender,
					ReceivedAt:      receivedAt,
					OriginalSubject: title,
				},
			})
			if err != nil {
				return false
			}

			if task.Importance < 1 || task.Importance > 10 {
				return false
			}
			if task.EmailSender != sender || task.OriginalSubject != title {
				return false
			}
			return task.EmailReceivedAt != nil && task.EmailReceivedAt.Equal(receivedAt)
		},
		titleGen,
		senderGen,
		importanceGen,
	))

	properties.TestingRun(t)
}

// Every open task lands in exactly one quadrant of the matrix, and the
// quadrant agrees with the importance and due-date rules.

func TestProperty_MatrixPartition(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	importanceGen := gen.IntRange(1, 10)
	// Due offsets from -72h to +168h around now; a zero marker means no due date
	dueOffsetGen := gen.IntRange(-72, 168)
	hasDueGen := gen.Bool()

	properties.Property("each_open_task_in_exactly_one_quadrant", prop.ForAll(
		func(importances []int, offsets []int, hasDue []bool) bool {
			tempDir, err := os.MkdirTemp("", "taskmatrix_matrix_test_*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(tempDir)

			dbPath := filepath.Join(tempDir, "test.db")
			db, err := database.Initialize(dbPath)
			if err != nil {
				return false
			}
			sqlDB, _ := db.DB()
			defer sqlDB.Close()

			owner, err := NewUserService(db).CreateUser("owner", "password123", "Owner")
			if err != nil {
				return false
			}

			now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
			taskService := NewTaskService(db)

			n := len(importances)
			if len(offsets) < n {
				n = len(offsets)
			}
			if len(hasDue) < n {
				n = len(hasDue)
			}
			for i := 0; i < n; i++ {
				input := TaskInput{Title: "task", Importance: importances[i]}
				if hasDue[i] {
					due := now.Add(time.Duration(offsets[i]) * time.Hour)
					input.DueDate = &due
				}
				if _, err := taskService.Create(owner.ID, input); err != nil {
					return false
				}
			}

			matrix, err := taskService.MatrixView(owner.ID, now)
			if err != nil {
				return false
			}

			total := len(matrix.DoFirst) + len(matrix.Schedule) + len(matrix.Delegate) + len(matrix.Eliminate)
			if total != n {
				return false
			}

			for _, task := range matrix.DoFirst {
				if !task.IsImportant() || !task.IsUrgent(now) {
					return false
				}
			}
			for _, task := range matrix.Schedule {
				if !task.IsImportant() || task.IsUrgent(now) {
					return false
				}
			}
			for _, task := range matrix.Delegate {
				if task.IsImportant() || !task.IsUrgent(now) {
					return false
				}
			}
			for _, task := range matrix.Eliminate {
				if task.IsImportant() || task.IsUrgent(now) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(6, importanceGen),
		gen.SliceOfN(6, dueOffsetGen),
		gen.SliceOfN(6, hasDueGen),
	))

	properties.TestingRun(t)
}
