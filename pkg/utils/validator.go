package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
)

var defaultValidator *validator.Validate

func init() {
	defaultValidator = validator.New()
	defaultValidator.RegisterValidation("token_type", validateTokenType)
}

// ValidateStruct validates a struct against its validate tags and returns an
// invalid_request error carrying per-field messages in its metadata.
func ValidateStruct(s interface{}) error {
	err := defaultValidator.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ErrInvalidRequest("request validation failed")
	}

	details := make(map[string]interface{}, len(validationErrors))
	for _, fe := range validationErrors {
		details[toSnakeCase(fe.Field())] = formatValidationError(fe)
	}

	authErr := errors.ErrInvalidRequest("request validation failed")
	for field, message := range details {
		authErr = authErr.WithMetadata(field, message)
	}
	return authErr
}

func validateTokenType(fl validator.FieldLevel) bool {
	switch constants.TokenType(fl.Field().String()) {
	case constants.TokenTypeAccess, constants.TokenTypeRefresh, constants.TokenTypeReset:
		return true
	}
	return false
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "token_type":
		return "must be a known token type"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' constraint", fe.Tag())
	}
}

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")
)

// toSnakeCase converts CamelCase field names to snake_case for error payloads
func toSnakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}

// ValidateNotEmpty reports whether a string has non-whitespace content
func ValidateNotEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// ValidateEmail reports whether a string is a plausible email address
func ValidateEmail(email string) bool {
	return defaultValidator.Var(email, "email") == nil
}
