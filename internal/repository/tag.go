package repository

import (
	"context"

	"campusqa/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository maintains the append-only tag usage counters.
type TagRepository interface {
	IncrementUsage(ctx context.Context, names []string) error
	Popular(ctx context.Context, limit int) ([]models.Tag, error)
}

type tagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// IncrementUsage upserts each tag, creating it with usage 1 or bumping the counter.
func (r *tagRepository) IncrementUsage(ctx context.Context, names []string) error {
	for _, name := range names {
		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{
				"usage_count": gorm.Expr("tags.usage_count + 1"),
				"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).Create(&models.Tag{Name: name, UsageCount: 1}).Error
		if err != nil {
			return models.NewInternalError(err)
		}
	}
	return nil
}

func (r *tagRepository) Popular(ctx context.Context, limit int) ([]models.Tag, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Order("usage_count DESC").Order("name ASC").Limit(limit).Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}
