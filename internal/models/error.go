package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound = errors.New("resource not found")

	// Gate errors
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotConfigured     = errors.New("reference secret not configured")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrInvalidToken      = errors.New("invalid session token")
)
