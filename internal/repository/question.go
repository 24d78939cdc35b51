package repository

import (
	"context"
	"strings"

	"campusqa/internal/models"

	"gorm.io/gorm"
)

// DefaultQuestionListLimit caps the newest-first question feed.
const DefaultQuestionListLimit = 50

// QuestionFilter narrows the question feed. Zero values mean "no filter".
type QuestionFilter struct {
	Query      string
	Category   string
	Unanswered bool
	Limit      int
}

// QuestionRepository defines persistence operations for questions.
type QuestionRepository interface {
	List(ctx context.Context, filter QuestionFilter) ([]models.Question, error)
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Question, error)
	Create(ctx context.Context, q *models.Question) error
	IncrementAnswers(ctx context.Context, id uint) error
	MoveAcceptedAnswer(ctx context.Context, id uint, from *uint, to uint) (bool, error)
	IDsByAuthor(ctx context.Context, authorID uint) ([]uint, error)
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository returns a QuestionRepository bound to db, which may be a transaction.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func questionNotFound() *models.AppError {
	return models.NewNotFoundErrorWithCode(models.CodeQuestionNotFound, "Question not found")
}

// List returns newest questions first with authors preloaded. Query matches
// title, description and tags case-insensitively.
func (r *questionRepository) List(ctx context.Context, filter QuestionFilter) ([]models.Question, error) {
	limit := filter.Limit
	if limit <= 0 || limit > DefaultQuestionListLimit {
		limit = DefaultQuestionListLimit
	}

	query := r.db.WithContext(ctx).Model(&models.Question{}).Preload("Author")
	if filter.Category != "" && models.IsValidCategory(filter.Category) {
		query = query.Where("category = ?", filter.Category)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := containsPattern(q)
		query = query.Where(
			`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(tags) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}
	if filter.Unanswered {
		query = query.Where("answers_count = 0")
	}

	var questions []models.Question
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&questions).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return questions, nil
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	if err := r.db.WithContext(ctx).Preload("Author").First(&q, id).Error; err != nil {
		return nil, notFoundOr(err, questionNotFound())
	}
	return &q, nil
}

// GetByIDForUpdate row-locks the question for the rest of the transaction.
func (r *questionRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	if err := forUpdate(r.db.WithContext(ctx)).First(&q, id).Error; err != nil {
		return nil, notFoundOr(err, questionNotFound())
	}
	return &q, nil
}

func (r *questionRepository) Create(ctx context.Context, q *models.Question) error {
	if q.Tags == nil {
		q.Tags = []string{}
	}
	if err := r.db.WithContext(ctx).Create(q).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *questionRepository) IncrementAnswers(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", id).
		UpdateColumn("answers_count", gorm.Expr("answers_count + ?", 1))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return questionNotFound()
	}
	return nil
}

// MoveAcceptedAnswer compare-and-sets accepted_answer_id from -> to. It
// reports false when another writer moved the pointer first.
func (r *questionRepository) MoveAcceptedAnswer(ctx context.Context, id uint, from *uint, to uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id)
	if from == nil {
		query = query.Where("accepted_answer_id IS NULL")
	} else {
		query = query.Where("accepted_answer_id = ?", *from)
	}

	res := query.UpdateColumn("accepted_answer_id", to)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *questionRepository) IDsByAuthor(ctx context.Context, authorID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Question{}).Where("author_id = ?", authorID).Pluck("id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
