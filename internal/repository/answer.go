package repository

import (
	"context"

	"campusqa/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnswerRepository defines persistence operations for answers and their likes.
type AnswerRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Answer, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Answer, error)
	ListByQuestion(ctx context.Context, questionID uint) ([]models.Answer, error)
	Create(ctx context.Context, a *models.Answer) error
	SetAccepted(ctx context.Context, id uint, accepted bool) error
	AdjustLikes(ctx context.Context, id uint, delta int) (int, error)
	AddLike(ctx context.Context, answerID, userID uint) (bool, error)
	RemoveLike(ctx context.Context, answerID, userID uint) (bool, error)
	LikedBy(ctx context.Context, userID uint, answerIDs []uint) (map[uint]bool, error)
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository returns an AnswerRepository bound to db, which may be a transaction.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func answerNotFound() *models.AppError {
	return models.NewNotFoundErrorWithCode(models.CodeAnswerNotFound, "Answer not found")
}

func (r *answerRepository) GetByID(ctx context.Context, id uint) (*models.Answer, error) {
	var a models.Answer
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, notFoundOr(err, answerNotFound())
	}
	return &a, nil
}

func (r *answerRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Answer, error) {
	var a models.Answer
	if err := forUpdate(r.db.WithContext(ctx)).First(&a, id).Error; err != nil {
		return nil, notFoundOr(err, answerNotFound())
	}
	return &a, nil
}

// ListByQuestion returns the accepted answer first, then oldest first.
func (r *answerRepository) ListByQuestion(ctx context.Context, questionID uint) ([]models.Answer, error) {
	var answers []models.Answer
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("question_id = ?", questionID).
		Order("is_accepted DESC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return answers, nil
}

func (r *answerRepository) Create(ctx context.Context, a *models.Answer) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *answerRepository) SetAccepted(ctx context.Context, id uint, accepted bool) error {
	res := r.db.WithContext(ctx).Model(&models.Answer{}).Where("id = ?", id).UpdateColumn("is_accepted", accepted)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return answerNotFound()
	}
	return nil
}

// AdjustLikes moves likes_count by delta and returns the new value.
func (r *answerRepository) AdjustLikes(ctx context.Context, id uint, delta int) (int, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Answer{}).Where("id = ?", id).
		UpdateColumn("likes_count", gorm.Expr("likes_count + ?", delta))
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, answerNotFound()
	}

	var count int
	if err := db.Model(&models.Answer{}).Where("id = ?", id).Pluck("likes_count", &count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// AddLike inserts the (answer, user) pair and reports whether a row was
// created. A concurrent duplicate is absorbed by the unique index.
func (r *answerRepository) AddLike(ctx context.Context, answerID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.AnswerLike{AnswerID: answerID, UserID: userID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// RemoveLike deletes the pair and reports whether it existed.
func (r *answerRepository) RemoveLike(ctx context.Context, answerID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("answer_id = ? AND user_id = ?", answerID, userID).
		Delete(&models.AnswerLike{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// LikedBy reports which of answerIDs userID currently likes.
func (r *answerRepository) LikedBy(ctx context.Context, userID uint, answerIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(answerIDs))
	if len(answerIDs) == 0 {
		return liked, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.AnswerLike{}).
		Where("user_id = ? AND answer_id IN ?", userID, answerIDs).
		Pluck("answer_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
