package errors

import (
	"fmt"
	"net/http"

	"lens/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// Is reports whether target is an application error of the same class. Two
// application errors are the same class when their business codes match, so
// a dynamically built error compares equal to its predefined prototype.
func (e *BaseError) Is(target error) bool {
	other, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return e.errorCode == other.errorCode
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// NewValidationError creates a validation error carrying the specific rule
// violation as its user-facing message. Validation failures happen before
// any network call and are never retried.
func NewValidationError(message string) *BaseError {
	return NewBaseError(http.StatusBadRequest, "VALIDATION_FAILED", message, "")
}

// Predefined error types
var (
	// Local validation errors
	ErrValidation = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"invalid input provided",
		"",
	)

	// Credential and registration errors
	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"incorrect username or password",
		"",
	)

	ErrNotConfirmed = NewBaseError(
		http.StatusForbidden,
		"USER_NOT_CONFIRMED",
		"account is not confirmed yet, enter the verification code sent to your email before signing in",
		"",
	)

	ErrInvalidCode = NewBaseError(
		http.StatusBadRequest,
		"INVALID_CODE",
		"confirmation code is invalid or has expired",
		"",
	)

	ErrAlreadyExists = NewBaseError(
		http.StatusConflict,
		"USER_ALREADY_EXISTS",
		"an account with this email already exists",
		"",
	)

	ErrNotAuthenticated = NewBaseError(
		http.StatusUnauthorized,
		"NOT_AUTHENTICATED",
		"no user is currently signed in",
		"",
	)

	// Token errors
	ErrMalformedToken = NewBaseError(
		http.StatusUnauthorized,
		"MALFORMED_TOKEN",
		"identity token is malformed",
		"",
	)

	// Federated login errors
	ErrProviderUnavailable = NewBaseError(
		http.StatusServiceUnavailable,
		"PROVIDER_UNAVAILABLE",
		"federated login is not configured",
		"",
	)

	ErrMissingEmail = NewBaseError(
		http.StatusPreconditionFailed,
		"MISSING_EMAIL",
		"a verified email is required before linking an external account",
		"",
	)

	ErrOAuthDenied = NewBaseError(
		http.StatusUnauthorized,
		"OAUTH_DENIED",
		"sign-in was cancelled or denied at the provider",
		"",
	)

	ErrHandshakeMismatch = NewBaseError(
		http.StatusUnauthorized,
		"HANDSHAKE_MISMATCH",
		"login callback could not be verified, start the sign-in again",
		"",
	)

	ErrTokenExchange = NewBaseError(
		http.StatusBadGateway,
		"TOKEN_EXCHANGE_FAILED",
		"could not complete sign-in with the provider, try again",
		"",
	)

	// Account linking errors
	ErrPasswordRequired = NewBaseError(
		http.StatusPreconditionRequired,
		"PASSWORD_REQUIRED",
		"set a password before removing the only external login",
		"",
	)

	ErrNoLinkedIdentity = NewBaseError(
		http.StatusNotFound,
		"NO_LINKED_IDENTITY",
		"no external identity is linked to this account",
		"",
	)

	ErrAlreadyLinked = NewBaseError(
		http.StatusConflict,
		"ALREADY_LINKED",
		"this external identity is already linked to an account",
		"",
	)

	ErrEmailMismatch = NewBaseError(
		http.StatusConflict,
		"EMAIL_MISMATCH",
		"the external account email does not match the signed-in account",
		"",
	)

	// Transport errors
	ErrNetwork = NewBaseError(
		http.StatusServiceUnavailable,
		"NETWORK_ERROR",
		"network request failed, check the connection and try again",
		"",
	)

	ErrBackend = NewBaseError(
		http.StatusBadGateway,
		"BACKEND_ERROR",
		"the server could not complete the request",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"internal error",
		"",
	)
)

// BackendCallError represents a failed backend REST call, implementing the
// AppError interface. It keeps the status the backend answered with and the
// server-provided message when one was present.
type BackendCallError struct {
	status  int
	message string
	details string
}

// NewBackendCallError creates a backend call error. An empty message falls
// back to generic text so the user always sees one readable sentence.
func NewBackendCallError(status int, message, details string) AppError {
	if message == "" {
		message = ErrBackend.Message()
	}

	return &BackendCallError{
		status:  status,
		message: message,
		details: details,
	}
}

// NewRequestFailedError creates a backend call error for a non-2xx response
// to an authenticated request. The status is embedded in the message.
func NewRequestFailedError(status int, statusText string) AppError {
	return &BackendCallError{
		status:  status,
		message: fmt.Sprintf("request failed with status %d %s", status, statusText),
	}
}

// Error implements the error interface
func (e *BackendCallError) Error() string {
	return e.message
}

// HTTPCode returns the HTTP status code the backend answered with
func (e *BackendCallError) HTTPCode() int {
	if e.status == 0 {
		return http.StatusBadGateway
	}

	return e.status
}

// ErrorCode returns the business error code
func (e *BackendCallError) ErrorCode() string {
	return "BACKEND_ERROR"
}

// Message returns the user-friendly error message
func (e *BackendCallError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BackendCallError) Details() string {
	return e.details
}
