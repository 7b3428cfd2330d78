package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = errors.New("domain: not found")
	ErrConflict     = errors.New("domain: conflict")
	ErrUnauthorized = errors.New("domain: unauthorized")
	ErrForbidden    = errors.New("domain: forbidden")

	// ErrInvalidDomain marks a hostname that fails the conservative
	// grammar check. Never retried automatically.
	ErrInvalidDomain = errors.New("domain: invalid hostname")

	// ErrAlreadyAdded distinguishes "this tenant already added the domain"
	// from ErrConflict, which means another tenant owns it.
	ErrAlreadyAdded = errors.New("domain: already added by this tenant")

	// ErrVerifyInProgress is returned when a verification attempt for the
	// same domain is already running.
	ErrVerifyInProgress = errors.New("domain: verification already in progress")
)
