package domain

import (
	"time"

	"github.com/google/uuid"
)

// LobbyState is the derived lobby condition of a project.
type LobbyState string

const (
	// LobbyStateUndefined is the initial state, before the first computation.
	LobbyStateUndefined LobbyState = "undefined"
	// LobbyStateNormal means the host is present and guest slots remain.
	LobbyStateNormal LobbyState = "normal"
	// LobbyStateHostNotPresent means the project owner is not connected.
	// Host absence dominates the guest-limit check.
	LobbyStateHostNotPresent LobbyState = "host_not_present"
	// LobbyStateGuestLimitReached means all guest slots are occupied.
	LobbyStateGuestLimitReached LobbyState = "guest_limit_reached"
	// LobbyStateError means the last computation failed.
	LobbyStateError LobbyState = "error"
)

// ProjectLobbyState is the cached, derived lobby condition of one project.
// It is never authoritative; it can always be re-derived from the
// participant registry and the session store.
type ProjectLobbyState struct {
	ProjectID uuid.UUID
	State     LobbyState
	UpdatedAt time.Time
}
