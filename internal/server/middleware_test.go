package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campusqa/internal/config"
	"campusqa/internal/models"
	"campusqa/internal/tokens"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionRoutesRequireSession(t *testing.T) {
	app, _ := newTestApp(t, nil)
	cfg := testConfig()

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    tokens.Issuer,
		Audience:  jwt.ClaimStrings{tokens.Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte(cfg.JWTAccessSecret))
	require.NoError(t, err)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/questions"},
		{http.MethodPost, "/api/questions"},
		{http.MethodGet, "/api/questions/1"},
		{http.MethodPost, "/api/questions/1/answers"},
		{http.MethodPost, "/api/questions/1/answers/2/accept"},
		{http.MethodPost, "/api/questions/1/answers/2/like"},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			res := call(t, app, apiRequest{method: r.method, path: r.path})
			assert.Equal(t, http.StatusUnauthorized, res.status)
			assert.Equal(t, models.CodeAuthRequired, res.code())

			for _, token := range []string{"garbage", expired} {
				res := call(t, app, apiRequest{method: r.method, path: r.path, token: token})
				assert.Equal(t, http.StatusUnauthorized, res.status)
				assert.Equal(t, models.CodeTokenInvalid, res.code())
			}
		})
	}
}

func TestSessionGateOnOtherSurfaces(t *testing.T) {
	app, _ := newTestApp(t, nil)

	for _, path := range []string{"/api/contributors", "/api/leaderboard", "/api/tags", "/api/features", "/api/auth/me"} {
		res := call(t, app, apiRequest{method: http.MethodGet, path: path})
		assert.Equal(t, http.StatusUnauthorized, res.status, path)
		assert.Equal(t, models.CodeAuthRequired, res.code(), path)
	}
}

func TestMessagesBehindFeatureFlag(t *testing.T) {
	app, _ := newTestApp(t, nil, func(cfg *config.Config) { cfg.FeatureFlags = "messages=off" })
	st := newStudent(t, app)

	res := call(t, app, apiRequest{method: http.MethodGet, path: "/api/messages/unread-count", token: st.token})
	assert.Equal(t, http.StatusNotFound, res.status)

	res = call(t, app, apiRequest{method: http.MethodGet, path: "/api/features", token: st.token})
	require.Equal(t, http.StatusOK, res.status)
	features := res.body["features"].(map[string]any)
	assert.Equal(t, false, features["messages"])
}

func TestSetupMiddleware_SecurityHeaders(t *testing.T) {
	app, _ := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}

func TestSetupMiddleware_RateLimitedResponseIncludesCORSHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.GlobalRateLimitPerMinute = 5
	srv := &Server{config: cfg}

	app := fiber.New(fiber.Config{ErrorHandler: models.ErrorHandler})
	srv.SetupMiddleware(app)
	app.Get("/limited", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Exhaust the limiter and assert the final response still carries CORS headers.
	for i := 0; i < cfg.GlobalRateLimitPerMinute; i++ {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	// Preflight is never throttled.
	preflight := httptest.NewRequest(http.MethodOptions, "/limited", nil)
	preflight.Header.Set("Origin", "http://localhost:5173")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
	preflightResp, err := app.Test(preflight, -1)
	require.NoError(t, err)
	defer func() { _ = preflightResp.Body.Close() }()
	assert.Equal(t, fiber.StatusNoContent, preflightResp.StatusCode)
}

func TestBodyLimit(t *testing.T) {
	app, _ := newTestApp(t, nil, func(cfg *config.Config) { cfg.BodyLimitKB = 1 })

	big := make([]byte, 4096)
	for i := range big {
		big[i] = 'a'
	}
	res := call(t, app, apiRequest{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{
		"identifier": string(big),
		"password":   "x",
	}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.status)
	assert.Equal(t, models.CodeHTTP, res.code())
}
