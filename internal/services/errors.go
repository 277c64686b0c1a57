package services

import "errors"

// Error kinds of the auth workflow; handlers map them to HTTP status codes with errors.Is.
var (
	ErrValidation           = errors.New("validation error")
	ErrConflict             = errors.New("conflict")
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrUnexpected           = errors.New("unexpected error")
)

// authError carries a client-safe message and unwraps to its kind.
type authError struct {
	kind error
	msg  string
}

func (e *authError) Error() string { return e.msg }
func (e *authError) Unwrap() error { return e.kind }

func newAuthError(kind error, msg string) error {
	return &authError{kind: kind, msg: msg}
}

var (
	ErrUserExists         = newAuthError(ErrConflict, "User already exists.")
	ErrUserNotFound       = newAuthError(ErrNotFound, "User not found.")
	ErrInvalidCredentials = newAuthError(ErrUnauthorized, "Invalid credentials.")
	ErrEmailNotVerified   = newAuthError(ErrUnauthorized, "Please verify your email before logging in.")
	ErrCodeRejected       = newAuthError(ErrInvalidOrExpiredCode, "Invalid or expired code.")
	errInternal           = newAuthError(ErrUnexpected, "Internal server error.")
)
