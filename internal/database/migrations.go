package database

import (
	"gorm.io/gorm"

	"github.com/sportperformance/academy-api/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Academy{},
		&models.User{},
		&models.OtpChallenge{},
		&models.InviteToken{},
		&models.Session{},
	)
}
