package server

import (
	"strings"
	"unicode"

	"campusqa/internal/middleware"
	"campusqa/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts a route parameter by name as a positive uint.
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "userId" -> "Invalid user ID", "answerId" -> "Invalid answer ID").
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid " + humanizeParam(param))
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "answerId" -> "answer ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// parseBody decodes the JSON body into dest.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// currentUserID returns the id set by the session middleware. Routes using it
// are always mounted behind AuthRequired.
func currentUserID(c *fiber.Ctx) (uint, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return 0, models.NewAuthRequiredError()
	}
	return userID, nil
}

// queryLimit reads ?limit= and falls back to def when absent or out of (0, ceiling].
func queryLimit(c *fiber.Ctx, def, ceiling int) int {
	limit := c.QueryInt("limit", def)
	if limit <= 0 || limit > ceiling {
		return def
	}
	return limit
}

// preview cuts s to at most n runes.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
