package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryServiceCRUD(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	svc := NewCategoryService(db)

	work, err := svc.Create(u.ID, "Work", "#ff0000")
	require.NoError(t, err)

	_, err = svc.Create(u.ID, "Work", "#00ff00")
	assert.ErrorIs(t, err, ErrCategoryExists)
	_, err = svc.Create(u.ID, "   ", "")
	assert.ErrorIs(t, err, ErrInvalidCategory)

	updated, err := svc.Update(u.ID, work.ID, "Office", "#0000ff")
	require.NoError(t, err)
	assert.Equal(t, "Office", updated.Name)

	list, err := svc.List(u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCategoryDeleteDetachesTasks(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "alice")
	categoryService := NewCategoryService(db)
	taskService := NewTaskService(db)

	cat, err := categoryService.Create(u.ID, "Errands", "")
	require.NoError(t, err)
	task, err := taskService.Create(u.ID, TaskInput{Title: "Post office", CategoryID: &cat.ID})
	require.NoError(t, err)

	require.NoError(t, categoryService.Delete(u.ID, cat.ID))

	// The task survives with no category attached.
	kept, err := taskService.Get(u.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.CategoryID)
}

func TestCategoryOwnershipIsolation(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	svc := NewCategoryService(db)

	cat, err := svc.Create(alice.ID, "Private", "")
	require.NoError(t, err)

	_, err = svc.Get(bob.ID, cat.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	// Same name under a different user is fine.
	_, err = svc.Create(bob.ID, "Private", "")
	assert.NoError(t, err)
}
