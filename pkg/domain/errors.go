package domain

import "errors"

// Not-found errors
var (
	ErrProjectNotFound      = errors.New("project not found")
	ErrGuestSessionNotFound = errors.New("guest session not found")
	ErrGuestInviteNotFound  = errors.New("guest invite not found")
	ErrLobbyStateNotFound   = errors.New("project lobby state not found")
	ErrUserNotFound         = errors.New("user not found")
)

// Orchestration errors
var (
	ErrGuestContextClearFailed = errors.New("failed to clear guest context")
	ErrProjectUnavailable      = errors.New("project directory unavailable")
	ErrMembershipUnavailable   = errors.New("membership list unavailable")
	ErrGuestVerificationFailed = errors.New("guest verification failed")
)

// Validation errors
var (
	ErrValidation = errors.New("validation failed")
)
