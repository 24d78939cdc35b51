package service

import (
	"context"
	"strings"

	"campusqa/internal/models"
	"campusqa/internal/repository"
	"campusqa/internal/validation"
)

// ProfileInput is the profile edit request body.
type ProfileInput struct {
	Skills      []string `json:"skills" validate:"max=20,dive,min=2,max=40"`
	Experience  string   `json:"experience" validate:"max=2000"`
	GithubURL   string   `json:"githubUrl" validate:"omitempty,url,max=200"`
	LinkedinURL string   `json:"linkedinUrl" validate:"omitempty,url,max=200"`
}

// UserService covers community membership and profile edits.
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// JoinCommunity sets the membership flag. Joining twice is fine.
func (s *UserService) JoinCommunity(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.JoinedCommunity {
		return user, nil
	}
	if err := s.users.SetJoined(ctx, userID); err != nil {
		return nil, err
	}
	user.JoinedCommunity = true
	return user, nil
}

// UpdateProfile replaces skills, experience and links.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	in.Skills = validation.TrimAll(append([]string{}, in.Skills...))
	in.Experience = strings.TrimSpace(in.Experience)
	in.GithubURL = strings.TrimSpace(in.GithubURL)
	in.LinkedinURL = strings.TrimSpace(in.LinkedinURL)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	err := s.users.UpdateProfile(ctx, userID, repository.ProfileUpdate{
		Skills:      in.Skills,
		Experience:  in.Experience,
		GithubURL:   in.GithubURL,
		LinkedinURL: in.LinkedinURL,
	})
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}
