package database

import (
	"os"
	"path/filepath"

	"github.com/taskmatrix/core/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize creates and returns a database connection
func Initialize(dbPath string) (*gorm.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// runMigrations runs all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Task{},
		&models.PushSubscription{},
		&models.Log{},
	); err != nil {
		return err
	}

	// Backfill for databases created before inbox aliases existed: every
	// user needs an alias or inbound mail can never reach them.
	if db.Migrator().HasTable(&models.User{}) {
		db.Exec("UPDATE users SET inbox_alias = LOWER(username) WHERE inbox_alias IS NULL OR inbox_alias = ''")
	}

	// Older rows predate the area column default.
	db.Exec("UPDATE tasks SET area = ? WHERE area IS NULL OR area = ''", models.TaskAreaManual)

	return nil
}
