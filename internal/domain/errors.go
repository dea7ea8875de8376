package domain

import "errors"

var (
	// ErrAuthenticationFailed is returned when a provider rejects the credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrSessionExpired marks a persisted session whose expiry has passed.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrPersistenceUnavailable wraps every storage read/write failure.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrInvalidQuantity        = errors.New("quantity must be positive")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrRateLimited            = errors.New("rate limit exceeded")
	ErrInvalidInput           = errors.New("invalid input")
	// ErrConflict marks a write that collides with an existing record.
	ErrConflict = errors.New("conflict")
)
