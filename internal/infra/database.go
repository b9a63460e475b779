package infra

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tillsync/internal/model"
)

// NewLocalDB opens the terminal-resident SQLite database backing the local
// replica and migrates its schema. WAL mode keeps writes durable without
// blocking reads; busy_timeout covers the brief lock contention between the
// request path and the background flusher.
func NewLocalDB(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&model.Document{},
		&model.PendingWrite{},
		&model.Setting{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return db, nil
}
