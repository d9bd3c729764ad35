package core

import "errors"

// Sentinel errors shared across components. Each component translates its
// own driver- and IO-level failures into one of these (wrapped with context)
// before they cross the component boundary.
var (
	// validation errors (bad input shape, user-correctable)
	ErrInvalidUsername = errors.New("username must be at least 3 characters")
	ErrWeakPassword    = errors.New("password must be at least 6 characters")

	// conflict errors
	ErrAlreadyProvisioned = errors.New("an account already exists")
	ErrDuplicateName      = errors.New("name already in use")

	// authentication errors
	ErrNoAccount          = errors.New("no account exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")

	// not-found errors (missing entity for update/delete)
	ErrNotFound = errors.New("not found")

	// storage errors
	ErrSourceMissing = errors.New("store file does not exist")

	// ErrCancelled marks a user-cancelled interaction. It is a benign
	// outcome, not a failure, and callers suppress it from alerts.
	ErrCancelled = errors.New("cancelled by user")
)
