package config

import (
	"gorm.io/gorm"

	"github.com/yoockh/mockinterview/internal/models"
)

// Migrate creates or updates the relational schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Resume{},
		&models.JobDescription{},
		&models.InterviewSession{},
		&models.InterviewQuestion{},
		&models.ConversationTurn{},
		&models.InterviewFeedback{},
	)
}
