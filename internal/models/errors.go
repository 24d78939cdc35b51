package models

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes surfaced to clients in the "code" field.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeTokenInvalid       = "TOKEN_INVALID_OR_EXPIRED"
	CodeRefreshMissing     = "REFRESH_MISSING"
	CodeRefreshInvalid     = "REFRESH_INVALID"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeNotJoined          = "NOT_JOINED"
	CodeNotQuestionOwner   = "NOT_QUESTION_OWNER"
	CodeNotFound           = "NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeQuestionNotFound   = "QUESTION_NOT_FOUND"
	CodeAnswerNotFound     = "ANSWER_NOT_FOUND"
	CodeUserExists         = "USER_EXISTS"
	CodeConflictRetry      = "CONFLICT_RETRY"
	CodeSelfMessage        = "SELF_MESSAGE"
	CodeRateLimited        = "RATE_LIMITED"
	CodeHTTP               = "HTTP_ERROR"
	CodeInternal           = "INTERNAL"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// FieldIssue is one failed field in a VALIDATION_ERROR response.
type FieldIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// AppError represents a custom application error carrying its HTTP mapping.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports malformed or out-of-range input.
func NewValidationError(message string, issues ...FieldIssue) *AppError {
	err := &AppError{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: message,
	}
	if len(issues) > 0 {
		err.Details = issues
	}
	return err
}

// NewBadRequestError reports a well-formed request that cannot be honored.
func NewBadRequestError(code, message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: code, Message: message}
}

// NewAuthRequiredError is returned when no credentials were presented at all.
func NewAuthRequiredError() *AppError {
	return &AppError{
		Status:  http.StatusUnauthorized,
		Code:    CodeAuthRequired,
		Message: "Authentication required",
	}
}

// NewTokenInvalidError is returned when an access token fails verification.
func NewTokenInvalidError() *AppError {
	return &AppError{
		Status:  http.StatusUnauthorized,
		Code:    CodeTokenInvalid,
		Message: "Session expired. Please log in again.",
	}
}

// NewRefreshError covers REFRESH_MISSING and REFRESH_INVALID.
func NewRefreshError(code, message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Code: code, Message: message}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Status:  http.StatusUnauthorized,
		Code:    CodeInvalidCredentials,
		Message: "Invalid credentials",
	}
}

func NewForbiddenError(code, message string) *AppError {
	return &AppError{Status: http.StatusForbidden, Code: code, Message: message}
}

// NewNotFoundErrorWithCode builds a 404 with a resource specific code and message.
func NewNotFoundErrorWithCode(code, message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Code: code, Message: message}
}

func NewConflictError(code, message string) *AppError {
	return &AppError{Status: http.StatusConflict, Code: code, Message: message}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// IsNotFound reports whether err is an AppError with a 404 status.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Status == http.StatusNotFound
}

// RespondWithError writes the standardized error body for err.
// Unknown errors are logged and hidden behind a generic 500.
func RespondWithError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Message: fiberErr.Message,
				Code:    CodeHTTP,
			})
		}
		appErr = NewInternalError(err)
	}

	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.UserContext(), "request failed with internal error",
			slog.String("path", c.Path()),
			slog.String("error", appErr.Error()),
		)
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}

// ErrorHandler is the fiber.Config ErrorHandler funnelling every handler error
// through RespondWithError.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return RespondWithError(c, err)
}
