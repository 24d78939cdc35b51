package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campusqa/internal/models"
	"campusqa/internal/tokens"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTokenService(accessTTL time.Duration) *tokens.Service {
	return tokens.NewService(tokens.Options{
		AccessSecret:  "middleware-access-secret-0123456789",
		RefreshSecret: "middleware-refresh-secret-0123456789",
		AccessTTL:     accessTTL,
		RefreshTTL:    time.Hour,
		HashCost:      bcrypt.MinCost,
	})
}

func TestAuthRequired(t *testing.T) {
	svc := newTokenService(time.Hour)
	expiredSvc := newTokenService(-time.Minute)

	app := fiber.New(fiber.Config{ErrorHandler: models.ErrorHandler})
	app.Get("/test", AuthRequired(svc), func(c *fiber.Ctx) error {
		userID, _ := UserID(c)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"userID": userID})
	})

	valid, err := svc.IssueAccessToken(123)
	require.NoError(t, err)
	expired, err := expiredSvc.IssueAccessToken(123)
	require.NoError(t, err)
	refresh, _, err := svc.IssueRefreshToken(123)
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedCode   string
		expectedUserID uint
	}{
		{"Happy path", "Bearer " + valid, http.StatusOK, "", 123},
		{"Lowercase scheme", "bearer " + valid, http.StatusOK, "", 123},
		{"Missing header", "", http.StatusUnauthorized, models.CodeAuthRequired, 0},
		{"Other scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, models.CodeAuthRequired, 0},
		{"Expired token", "Bearer " + expired, http.StatusUnauthorized, models.CodeTokenInvalid, 0},
		{"Garbage token", "Bearer not-a-token", http.StatusUnauthorized, models.CodeTokenInvalid, 0},
		{"Empty bearer", "Bearer ", http.StatusUnauthorized, models.CodeTokenInvalid, 0},
		{"Refresh token as bearer", "Bearer " + refresh, http.StatusUnauthorized, models.CodeTokenInvalid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["code"])
				assert.NotEmpty(t, body["message"])
			} else {
				assert.Equal(t, float64(tt.expectedUserID), body["userID"])
			}
		})
	}
}
