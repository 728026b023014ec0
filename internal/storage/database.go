package storage

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenAndMigrate opens the SQLite database at dataSourceName and keeps the
// match schema up to date.
func OpenAndMigrate(dataSourceName string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dataSourceName, err)
	}

	// Keep schema updated via AutoMigrate; the database file can simply be
	// removed to start over.
	if err := db.AutoMigrate(&matchRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_matches_status_turn ON matches(status, turn_started_at);").Error; err != nil {
		return nil, err
	}
	return db, nil
}
