// Package common holds the sentinel errors shared by the service and HTTP layers.
// Callers match them with errors.Is.
package common

import "errors"

var (
	// credential / account errors
	ErrMissingCredentials = errors.New("email and password are required")
	ErrDuplicateAccount   = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidPassword    = errors.New("invalid password")

	// token errors
	ErrTokenExpired        = errors.New("token expired")
	ErrInvalidToken        = errors.New("invalid token")
	ErrServerMisconfigured = errors.New("server misconfigured")

	// access control errors
	ErrNotAuthenticated        = errors.New("not authenticated")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrForbidden               = errors.New("forbidden")

	// resource errors
	ErrEventNotFound = errors.New("event not found")
	ErrPostNotFound  = errors.New("post not found")
	ErrImageNotFound = errors.New("image not found")

	ErrValidation = errors.New("validation error")
)

// ValidationError describes malformed client input. It matches ErrValidation.
type ValidationError struct {
	Message string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "server"
	}
}

// KindOf classifies err. Anything unrecognised is a server error.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindServer
	case errors.Is(err, ErrValidation), errors.Is(err, ErrMissingCredentials):
		return KindValidation
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrInvalidPassword):
		return KindAuthentication
	case errors.Is(err, ErrInsufficientPermissions), errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrPostNotFound), errors.Is(err, ErrImageNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicateAccount):
		return KindConflict
	default:
		return KindServer
	}
}
