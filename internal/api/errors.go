package api

import "errors"

var (
	// ErrUnauthorized means the session token was rejected or missing.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound means the target task no longer exists on the server.
	ErrNotFound = errors.New("not found")
	// ErrValidation means the server rejected the request payload.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials means login was refused.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken means signup was refused because the email is in use.
	ErrEmailTaken = errors.New("email already registered")
)

// NetworkError wraps a transport-level failure. The request may simply be
// retried by the user; the server state is unknown.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is a transport failure rather than a
// server-side rejection.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
