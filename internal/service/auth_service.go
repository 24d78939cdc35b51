package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"campusqa/internal/models"
	"campusqa/internal/observability"
	"campusqa/internal/repository"
	"campusqa/internal/tokens"
	"campusqa/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// SignupInput is the signup request body.
type SignupInput struct {
	Name            string `json:"name" validate:"required,min=2,max=80"`
	Department      string `json:"department" validate:"required,min=2,max=80"`
	Year            int    `json:"year" validate:"required,min=1,max=4"`
	RollNumber      string `json:"rollNumber" validate:"required,min=2,max=40"`
	Email           string `json:"email" validate:"required,email"`
	MobileNumber    string `json:"mobileNumber" validate:"required,mobile"`
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func (in *SignupInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Department = strings.TrimSpace(in.Department)
	in.RollNumber = strings.TrimSpace(in.RollNumber)
	in.Email = validation.NormalizeEmail(in.Email)
	in.MobileNumber = strings.TrimSpace(in.MobileNumber)
}

// LoginInput is the login request body. Identifier is an email or a roll number.
type LoginInput struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Session is the result of a successful login.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// AuthService owns the credential and refresh-session lifecycle.
type AuthService struct {
	users  repository.UserRepository
	tokens *tokens.Service
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(users repository.UserRepository, tokenSvc *tokens.Service) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokenSvc,
		now:    time.Now,
	}
}

// Signup registers a student. Email is stored lower-cased, roll number trimmed.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmailOrRoll(ctx, in.Email, in.RollNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError(models.CodeUserExists, "Email or Roll Number already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.tokens.HashCost())
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:         in.Name,
		Department:   in.Department,
		Year:         in.Year,
		RollNumber:   in.RollNumber,
		Email:        in.Email,
		MobileNumber: in.MobileNumber,
		PasswordHash: string(hash),
		Skills:       []string{},
	}
	// The unique indexes decide concurrent signups that both passed the pre-check.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user signed up", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

// Login verifies credentials and opens a refresh session, replacing any
// previous one. Unknown identifiers and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	identifier := strings.TrimSpace(in.Identifier)
	user, err := s.users.FindByIdentifier(ctx, validation.NormalizeEmail(identifier), identifier)
	if err != nil {
		return nil, err
	}

	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(in.Password))
		observability.AuthEvents.WithLabelValues("login_failed").Inc()
		return nil, models.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		observability.AuthEvents.WithLabelValues("login_failed").Inc()
		return nil, models.NewInvalidCredentialsError()
	}

	session, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	observability.AuthEvents.WithLabelValues("login_ok").Inc()
	return session, nil
}

func (s *AuthService) openSession(ctx context.Context, user *models.User) (*Session, error) {
	access, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refresh, rti, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	hash, err := s.tokens.HashRTI(rti)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	now := s.now()
	if err := s.users.SetRefreshSession(ctx, user.ID, hash, now); err != nil {
		return nil, err
	}
	user.RefreshTokenHash = &hash
	user.RefreshTokenIssuedAt = &now
	user.LastActiveAt = &now

	return &Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", models.NewRefreshError(models.CodeRefreshMissing, "Missing refresh token")
	}

	userID, rti, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		observability.AuthEvents.WithLabelValues("refresh_failed").Inc()
		return "", models.NewRefreshError(models.CodeRefreshInvalid, "Invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil && !models.IsNotFound(err) {
		return "", err
	}
	if user == nil || !user.HasRefreshSession() || !s.tokens.CompareRTI(rti, *user.RefreshTokenHash) {
		observability.AuthEvents.WithLabelValues("refresh_failed").Inc()
		return "", models.NewRefreshError(models.CodeRefreshInvalid, "Refresh token not recognized")
	}

	access, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	s.touch(ctx, user.ID)

	observability.AuthEvents.WithLabelValues("refresh_ok").Inc()
	return access, nil
}

// Logout clears the stored refresh session. The owner comes from the refresh
// token when it decodes, otherwise from bearerUserID. Decode failures are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, bearerUserID uint) error {
	userID := bearerUserID
	if refreshToken != "" {
		if id, _, err := s.tokens.VerifyRefreshToken(refreshToken); err == nil {
			userID = id
		}
	}
	if userID == 0 {
		return nil
	}

	if err := s.users.ClearRefreshSession(ctx, userID); err != nil && !models.IsNotFound(err) {
		return err
	}
	observability.AuthEvents.WithLabelValues("logout").Inc()
	return nil
}

// Me returns the caller's record and marks them active.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	s.touch(ctx, userID)
	user.LastActiveAt = &now
	return user, nil
}

func (s *AuthService) touch(ctx context.Context, userID uint) {
	if err := s.users.Touch(ctx, userID, s.now()); err != nil && !models.IsNotFound(err) {
		slog.WarnContext(ctx, "failed to record activity",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
	}
}

// dummy is a hash of a fixed password at the configured cost, compared
// against when the identifier is unknown.
func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("campusqa-no-such-user"), s.tokens.HashCost())
		if err != nil {
			slog.Error("failed to build dummy password hash", slog.String("error", err.Error()))
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
