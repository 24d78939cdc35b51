package server

import (
	"time"

	"campusqa/internal/middleware"
	"campusqa/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/auth/refresh"
)

// refreshCookie scopes the refresh token to the refresh endpoint so it is
// never sent with ordinary API calls.
func (s *Server) refreshCookie(value string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req service.SignupInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := s.authService.Signup(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Signup successful",
		"user": signupSummary{
			ID:         user.ID,
			Name:       user.Name,
			Year:       user.Year,
			Email:      user.Email,
			RollNumber: user.RollNumber,
		},
	})
}

// Login handles POST /api/auth/login. The refresh token travels only in the
// httpOnly cookie; the access token goes in the body.
func (s *Server) Login(c *fiber.Ctx) error {
	var req service.LoginInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := s.authService.Login(c.UserContext(), req)
	if err != nil {
		return err
	}

	c.Cookie(s.refreshCookie(session.RefreshToken, int(s.tokens.RefreshTTL()/time.Second)))
	return c.JSON(fiber.Map{
		"message":     "Login successful",
		"accessToken": session.AccessToken,
		"user":        newUserProfile(session.User),
	})
}

// Refresh handles POST /api/auth/refresh
func (s *Server) Refresh(c *fiber.Ctx) error {
	access, err := s.authService.Refresh(c.UserContext(), c.Cookies(refreshCookieName))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"accessToken": access})
}

// Logout handles POST /api/auth/logout. The cookie is path-scoped to the
// refresh endpoint, so a bearer token also identifies the session owner.
// The cookie is always expired.
func (s *Server) Logout(c *fiber.Ctx) error {
	var bearerUserID uint
	if token, ok := middleware.BearerToken(c); ok {
		if id, err := s.tokens.VerifyAccessToken(token); err == nil {
			bearerUserID = id
		}
	}

	if err := s.authService.Logout(c.UserContext(), c.Cookies(refreshCookieName), bearerUserID); err != nil {
		return err
	}

	cookie := s.refreshCookie("", -1)
	cookie.Expires = time.Unix(0, 0)
	c.Cookie(cookie)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me handles GET /api/auth/me
func (s *Server) Me(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	user, err := s.authService.Me(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": newUserProfile(user)})
}
