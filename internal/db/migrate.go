package db

import (
	"github.com/lsst-ts/narrativelog/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Message{},
		&models.JiraFields{},
	)
}
