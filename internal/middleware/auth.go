// Package middleware provides the session gatekeeper, logging, rate limiting,
// tracing and metrics middleware for the HTTP server.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"campusqa/internal/models"
	"campusqa/internal/tokens"

	"github.com/gofiber/fiber/v2"
)

// AccessVerifier resolves an access token to a user id.
type AccessVerifier interface {
	VerifyAccessToken(token string) (uint, error)
}

// AuthRequired rejects requests without a valid bearer access token.
// A missing header yields AUTH_REQUIRED; a present but bad token yields
// TOKEN_INVALID_OR_EXPIRED so clients know a refresh is worth trying.
// Identity comes from the token alone; the database is not consulted.
func AuthRequired(verifier AccessVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, present := BearerToken(c)
		if !present {
			return models.NewAuthRequiredError()
		}

		userID, err := verifier.VerifyAccessToken(token)
		if err != nil {
			if !errors.Is(err, tokens.ErrTokenExpired) {
				Logger.DebugContext(c.UserContext(), "access token rejected", slog.String("error", err.Error()))
			}
			return models.NewTokenInvalidError()
		}

		SetUserID(c, userID)
		return c.Next()
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// present is false when the header is absent or uses another scheme.
func BearerToken(c *fiber.Ctx) (token string, present bool) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return "", false
	}
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// SetUserID stores the authenticated user id in Fiber locals and the request context.
func SetUserID(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

// UserID returns the authenticated user id set by AuthRequired.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok && id != 0
}
