// Package errors defines the typed error taxonomy for the climbauth service.
// Every failure that crosses a component boundary is an AuthError carrying a
// stable machine code, an HTTP status, and a deliberately generic external
// description; the precise internal reason lives in the message and cause
// chain, which are logged server-side and never returned to callers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

// External descriptions are shared across failure modes on purpose: unknown
// identifiers, bad signatures, expired keys and malformed tokens must all look
// identical to an end user.
const (
	descUnauthenticated = "The credentials or token provided are not valid."
	descForbidden       = "The token has been revoked."
	descRateLimited     = "Too many attempts. Please try again later."
	descInvalidRequest  = "The request is missing a required parameter or is otherwise malformed."
	descServerError     = "An internal error occurred."
)

// ================================================================================
// AuthError Interface
// ================================================================================

// AuthError is a structured error with a stable code and HTTP mapping.
type AuthError interface {
	error

	// Code returns the stable machine-readable error code
	Code() constants.ErrorCode

	// HTTPStatus returns the HTTP status this error maps to
	HTTPStatus() int

	// Description returns the safe, information-minimizing external text
	Description() string

	// Unwrap returns the underlying cause for error-chain support
	Unwrap() error

	// WithCause attaches a cause error to the chain
	WithCause(cause error) AuthError

	// WithMetadata attaches additional context metadata
	WithMetadata(key string, value interface{}) AuthError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

type baseError struct {
	code        constants.ErrorCode
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

// Error returns the internal message, falling back to the description.
func (e *baseError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.description
}

// Code returns the stable error code
func (e *baseError) Code() constants.ErrorCode {
	return e.code
}

// HTTPStatus returns the HTTP status code
func (e *baseError) HTTPStatus() int {
	return e.httpStatus
}

// Description returns the safe external description
func (e *baseError) Description() string {
	return e.description
}

// Unwrap returns the underlying cause error
func (e *baseError) Unwrap() error {
	return e.cause
}

// WithCause attaches a cause error to the chain
func (e *baseError) WithCause(cause error) AuthError {
	e.cause = cause
	return e
}

// WithMetadata attaches additional context metadata
func (e *baseError) WithMetadata(key string, value interface{}) AuthError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// Metadata returns all metadata
func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// ================================================================================
// Constructors
// ================================================================================

// NewError creates an AuthError with explicit parameters.
func NewError(code constants.ErrorCode, httpStatus int, description string, message string) AuthError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// New creates an AuthError from a code and an internal message, deriving the
// HTTP status and external description from the code.
func New(code constants.ErrorCode, message string) AuthError {
	return NewError(code, statusFor(code), descriptionFor(code), message)
}

// Wrap converts an arbitrary error into an AuthError with the given code,
// preserving the original as the cause. A wrapped AuthError keeps its own
// code rather than being re-tagged.
func Wrap(err error, code constants.ErrorCode, message string) AuthError {
	if err == nil {
		return nil
	}
	if authErr, ok := AsAuthError(err); ok {
		return authErr
	}
	return New(code, message).WithCause(err)
}

func statusFor(code constants.ErrorCode) int {
	switch code {
	case constants.ErrCodeMissingKeyID,
		constants.ErrCodeKeyNotFound,
		constants.ErrCodeKeyExpired,
		constants.ErrCodeSignatureInvalid,
		constants.ErrCodeTypeMismatch,
		constants.ErrCodeTokenExpired,
		constants.ErrCodeTokenMalformed,
		constants.ErrCodeCredentialsInvalid:
		return http.StatusUnauthorized
	case constants.ErrCodeTokenRevoked:
		return http.StatusForbidden
	case constants.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case constants.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func descriptionFor(code constants.ErrorCode) string {
	switch statusFor(code) {
	case http.StatusUnauthorized:
		return descUnauthenticated
	case http.StatusForbidden:
		return descForbidden
	case http.StatusTooManyRequests:
		return descRateLimited
	case http.StatusBadRequest:
		return descInvalidRequest
	default:
		return descServerError
	}
}

// ================================================================================
// Taxonomy Constructors
// ================================================================================

// ErrMissingKeyID reports a token header without a kid parameter.
func ErrMissingKeyID() AuthError {
	return New(constants.ErrCodeMissingKeyID, "token header carries no kid")
}

// ErrKeyNotFound reports a kid that resolves to no stored signing key.
func ErrKeyNotFound(kid string) AuthError {
	return New(constants.ErrCodeKeyNotFound, fmt.Sprintf("signing key %s not found", kid)).
		WithMetadata("kid", kid)
}

// ErrKeyExpired reports a signing key past its expires_at.
func ErrKeyExpired(kid string) AuthError {
	return New(constants.ErrCodeKeyExpired, fmt.Sprintf("signing key %s has expired", kid)).
		WithMetadata("kid", kid)
}

// ErrSignatureInvalid reports a signature that did not verify.
func ErrSignatureInvalid() AuthError {
	return New(constants.ErrCodeSignatureInvalid, "token signature verification failed")
}

// ErrTypeMismatch reports a token presented as the wrong type.
func ErrTypeMismatch(expected, actual string) AuthError {
	return New(constants.ErrCodeTypeMismatch,
		fmt.Sprintf("token type %q where %q was expected", actual, expected)).
		WithMetadata("expected_type", expected).
		WithMetadata("actual_type", actual)
}

// ErrTokenRevoked reports a jti present in the revocation set.
func ErrTokenRevoked(jti string) AuthError {
	return New(constants.ErrCodeTokenRevoked, fmt.Sprintf("token %s has been revoked", jti)).
		WithMetadata("jti", jti)
}

// ErrTokenExpired reports a token whose own exp claim has passed.
func ErrTokenExpired(tokenType string) AuthError {
	return New(constants.ErrCodeTokenExpired, fmt.Sprintf("%s token has expired", tokenType)).
		WithMetadata("token_type", tokenType)
}

// ErrTokenMalformed reports a token that could not be parsed.
func ErrTokenMalformed(reason string) AuthError {
	return New(constants.ErrCodeTokenMalformed, fmt.Sprintf("token is malformed: %s", reason))
}

// ErrCredentialsInvalid reports an unknown identifier or wrong secret. The
// two cases share one error so callers cannot distinguish them.
func ErrCredentialsInvalid() AuthError {
	return New(constants.ErrCodeCredentialsInvalid, "identifier or secret did not match")
}

// ErrRateLimited reports an over-threshold caller; retryAfter is the
// remaining window and is surfaced in metadata and the Retry-After header.
func ErrRateLimited(retryAfter time.Duration) AuthError {
	seconds := int64(retryAfter / time.Second)
	if retryAfter > 0 && seconds == 0 {
		seconds = 1
	}
	return New(constants.ErrCodeRateLimited, "attempt threshold exceeded").
		WithMetadata("retry_after_seconds", seconds)
}

// ErrKeyGenerationFailed reports a failed keypair generation or an empty key
// set where one is required.
func ErrKeyGenerationFailed(message string) AuthError {
	return New(constants.ErrCodeKeyGenerationFailed, message)
}

// ErrEncryptionFailed reports a failed at-rest encrypt or decrypt.
func ErrEncryptionFailed(message string) AuthError {
	return New(constants.ErrCodeEncryptionFailed, message)
}

// ErrInvalidRequest reports a missing or malformed request parameter.
func ErrInvalidRequest(message string) AuthError {
	return New(constants.ErrCodeInvalidRequest, message)
}

// ErrStorageFailure reports a failed repository or cache operation.
func ErrStorageFailure(op string, cause error) AuthError {
	return New(constants.ErrCodeStorageFailure, fmt.Sprintf("storage operation %s failed", op)).
		WithCause(cause)
}

// ErrServerError reports an unexpected internal condition.
func ErrServerError(message string) AuthError {
	return New(constants.ErrCodeInternal, message)
}

// ================================================================================
// Inspection Helpers
// ================================================================================

// AsAuthError unwraps err looking for an AuthError anywhere in the chain.
func AsAuthError(err error) (AuthError, bool) {
	var authErr AuthError
	if stderrors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// CodeOf returns the error's code, or ErrCodeInternal for untyped errors.
func CodeOf(err error) constants.ErrorCode {
	if authErr, ok := AsAuthError(err); ok {
		return authErr.Code()
	}
	return constants.ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code constants.ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// RetryAfterSeconds extracts the retry-after metadata from a rate-limit
// error, or 0 when absent.
func RetryAfterSeconds(err error) int64 {
	authErr, ok := AsAuthError(err)
	if !ok {
		return 0
	}
	if v, ok := authErr.Metadata()["retry_after_seconds"].(int64); ok {
		return v
	}
	return 0
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse is the JSON body returned for failed requests. It carries
// only the code and the generic description, never the internal message.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	RetryAfter       int64  `json:"retry_after,omitempty"`
}

// ToErrorResponse converts any error into the external response shape.
// Untyped errors collapse into a generic server error.
func ToErrorResponse(err error) *ErrorResponse {
	authErr, ok := AsAuthError(err)
	if !ok {
		return &ErrorResponse{
			Error:            string(constants.ErrCodeInternal),
			ErrorDescription: descServerError,
		}
	}
	return &ErrorResponse{
		Error:            string(authErr.Code()),
		ErrorDescription: authErr.Description(),
		RetryAfter:       RetryAfterSeconds(authErr),
	}
}
