package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"campusqa/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T", err)
	return appErr.Code
}

func TestUserRepository_GetByID_Mock(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		wantName     string
		wantCode     string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "name", "email"}).
					AddRow(1, "Asha", "asha@campus.edu")
				mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"."id" = \$1`).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			wantName: "Asha",
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"."id" = \$1`).
					WithArgs(99, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			wantCode: models.CodeUserNotFound,
		},
		{
			name:   "Driver error",
			userID: 5,
			mockBehavior: func() {
				mock.ExpectQuery(`SELECT \* FROM "users"`).
					WillReturnError(errors.New("connection reset"))
			},
			wantCode: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, appErrCode(t, err))
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.wantName, user.Name)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Create_UniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Name: "Asha", Email: "asha@campus.edu"})
	require.Error(t, err)
	assert.Equal(t, models.CodeUserExists, appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &models.User{
		Name: "Asha", Department: "CSE", Year: 3, RollNumber: "21CS042",
		Email: "asha@campus.edu", MobileNumber: "9876543210", PasswordHash: "hash",
	}
	require.NoError(t, repo.Create(ctx, u))
	require.NotZero(t, u.ID)

	t.Run("Duplicate email", func(t *testing.T) {
		dup := *u
		dup.ID = 0
		dup.RollNumber = "21CS043"
		err := repo.Create(ctx, &dup)
		assert.Equal(t, models.CodeUserExists, appErrCode(t, err))
	})

	t.Run("Duplicate roll number", func(t *testing.T) {
		dup := *u
		dup.ID = 0
		dup.Email = "other@campus.edu"
		err := repo.Create(ctx, &dup)
		assert.Equal(t, models.CodeUserExists, appErrCode(t, err))
	})

	t.Run("Find by email or roll", func(t *testing.T) {
		byEmail, err := repo.FindByIdentifier(ctx, "asha@campus.edu", "ASHA@CAMPUS.EDU")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, u.ID, byEmail.ID)

		byRoll, err := repo.FindByIdentifier(ctx, "21cs042", "21CS042")
		require.NoError(t, err)
		require.NotNil(t, byRoll)
		assert.Equal(t, u.ID, byRoll.ID)

		none, err := repo.FindByIdentifier(ctx, "ghost@campus.edu", "ghost@campus.edu")
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("Exists", func(t *testing.T) {
		exists, err := repo.ExistsByEmailOrRoll(ctx, "nobody@campus.edu", "21CS042")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByEmailOrRoll(ctx, "nobody@campus.edu", "00XX000")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestUserRepository_RefreshSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := createUser(t, db)

	issued := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SetRefreshSession(ctx, u.ID, "rti-hash", issued))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.HasRefreshSession())
	assert.Equal(t, "rti-hash", *got.RefreshTokenHash)
	require.NotNil(t, got.LastActiveAt)

	require.NoError(t, repo.ClearRefreshSession(ctx, u.ID))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.HasRefreshSession())
	assert.Nil(t, got.RefreshTokenIssuedAt)
	assert.Nil(t, got.LastActiveAt)

	err = repo.Touch(ctx, 9999, time.Now())
	assert.Equal(t, models.CodeUserNotFound, appErrCode(t, err))
}

func TestUserRepository_ProfileAndMembership(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := createUser(t, db)

	require.NoError(t, repo.SetJoined(ctx, u.ID))
	require.NoError(t, repo.SetJoined(ctx, u.ID), "joining twice is fine")

	require.NoError(t, repo.UpdateProfile(ctx, u.ID, ProfileUpdate{
		Skills:     []string{"go", "react"},
		Experience: "Intern at a startup",
		GithubURL:  "https://github.com/asha",
	}))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.JoinedCommunity)
	assert.Equal(t, []string{"go", "react"}, got.Skills)
	assert.Equal(t, "Intern at a startup", got.Experience)
	assert.Equal(t, "https://github.com/asha", got.GithubURL)
	assert.Empty(t, got.LinkedinURL)

	err = repo.UpdateProfile(ctx, 9999, ProfileUpdate{})
	assert.Equal(t, models.CodeUserNotFound, appErrCode(t, err))

	byID, err := repo.GetByIDs(ctx, []uint{u.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, byID, 1)
}
