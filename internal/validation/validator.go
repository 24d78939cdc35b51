// Package validation wraps go-playground/validator and turns its failures
// into per-field issues for VALIDATION_ERROR responses.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"campusqa/internal/models"

	"github.com/go-playground/validator/v10"
)

var mobileRegex = regexp.MustCompile(`^\d{10}$`)

// Validator wraps the go-playground validator with the app's custom rules.
type Validator struct {
	validate *validator.Validate
}

var defaultValidator = New()

// New creates a validator with the custom tags registered:
// mobile, password and category.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so issue paths match request bodies.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobileRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return ValidatePassword(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.IsValidCategory(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Struct validates s with the package default validator.
func Struct(s any) error {
	return defaultValidator.Struct(s)
}

// Struct validates s and returns a *models.AppError listing every failed field.
// The error message is the first issue so forms can show it directly.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewValidationError("Invalid request body")
	}

	issues := make([]models.FieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, models.FieldIssue{
			Path:    issuePath(fe),
			Message: issueMessage(fe),
		})
	}
	return models.NewValidationError(issues[0].Message, issues...)
}

// issuePath drops the root struct name: "signupRequest.tags[1]" -> "tags[1]".
func issuePath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func issueMessage(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Invalid email"
	case "mobile":
		return "Mobile number must be exactly 10 digits"
	case "password":
		if err := ValidatePassword(fmt.Sprint(fe.Value())); err != nil {
			return err.Error()
		}
		return "Password does not meet requirements"
	case "eqfield":
		return "Passwords do not match"
	case "category":
		return "Invalid category"
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min", "gte":
		return boundMessage(fe, "at least")
	case "max", "lte":
		return boundMessage(fe, "at most")
	}
	return fmt.Sprintf("%s is invalid", field)
}

func boundMessage(fe validator.FieldError, rel string) string {
	switch fe.Kind() {
	case reflect.String:
		return fmt.Sprintf("%s must be %s %s characters", fe.Field(), rel, fe.Param())
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("%s must have %s %s items", fe.Field(), rel, fe.Param())
	default:
		return fmt.Sprintf("%s must be %s %s", fe.Field(), rel, fe.Param())
	}
}
