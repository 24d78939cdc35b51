// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"campusqa/internal/models"

	"gorm.io/gorm"
)

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Skills      []string
	Experience  string
	GithubURL   string
	LinkedinURL string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error)
	FindByIdentifier(ctx context.Context, email, rollNumber string) (*models.User, error)
	ExistsByEmailOrRoll(ctx context.Context, email, rollNumber string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	SetRefreshSession(ctx context.Context, id uint, hash string, issuedAt time.Time) error
	ClearRefreshSession(ctx context.Context, id uint) error
	Touch(ctx context.Context, id uint, at time.Time) error
	SetJoined(ctx context.Context, id uint) error
	UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func userNotFound() *models.AppError {
	return models.NewNotFoundErrorWithCode(models.CodeUserNotFound, "User not found")
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, userNotFound())
	}
	return &user, nil
}

// GetByIDs loads users keyed by id. Missing ids are simply absent.
func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// FindByIdentifier matches the normalized email or the exact roll number.
// Returns (nil, nil) when nobody matches.
func (r *userRepository) FindByIdentifier(ctx context.Context, email, rollNumber string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ? OR roll_number = ?", email, rollNumber).
		Order("id ASC").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmailOrRoll(ctx context.Context, email, rollNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR roll_number = ?", email, rollNumber).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Create inserts the user. The unique indexes on email and roll_number decide
// concurrent signups.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError(models.CodeUserExists, "Email or Roll Number already registered")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) SetRefreshSession(ctx context.Context, id uint, hash string, issuedAt time.Time) error {
	return r.update(ctx, id, map[string]any{
		"refresh_token_hash":      hash,
		"refresh_token_issued_at": issuedAt,
		"last_active_at":          issuedAt,
	})
}

func (r *userRepository) ClearRefreshSession(ctx context.Context, id uint) error {
	return r.update(ctx, id, map[string]any{
		"refresh_token_hash":      nil,
		"refresh_token_issued_at": nil,
		"last_active_at":          nil,
	})
}

func (r *userRepository) Touch(ctx context.Context, id uint, at time.Time) error {
	return r.update(ctx, id, map[string]any{"last_active_at": at})
}

func (r *userRepository) SetJoined(ctx context.Context, id uint) error {
	return r.update(ctx, id, map[string]any{"joined_community": true})
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) error {
	skills := in.Skills
	if skills == nil {
		skills = []string{}
	}
	// Skills goes through the model so the json serializer applies.
	res := r.db.WithContext(ctx).Model(&models.User{ID: id}).
		Select("Skills", "Experience", "GithubURL", "LinkedinURL").
		Updates(&models.User{
			Skills:      skills,
			Experience:  in.Experience,
			GithubURL:   in.GithubURL,
			LinkedinURL: in.LinkedinURL,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return userNotFound()
	}
	return nil
}

func (r *userRepository) update(ctx context.Context, id uint, values map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return userNotFound()
	}
	return nil
}
