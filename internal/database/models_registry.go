package database

import "campusqa/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Question{},
		&models.Answer{},
		&models.AnswerLike{},
		&models.Tag{},
		&models.Message{},
		&models.ReputationEvent{},
	}
}
