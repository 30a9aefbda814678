package model

import "errors"

var (
	// Auth related errors
	ErrUnknownUser     = errors.New("unknown username")
	ErrUnauthenticated = errors.New("authentication required")

	// Session related errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
