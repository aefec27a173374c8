package services

import "errors"

var (
	ErrWeakPassword = errors.New("password must be at least 8 characters and include upper and lower case letters, a number and a symbol")
	ErrInvalidToken = errors.New("token is invalid or has expired")
	// ErrUnavailable marks a feature whose backend is not configured.
	ErrUnavailable = errors.New("feature is not available")
)
