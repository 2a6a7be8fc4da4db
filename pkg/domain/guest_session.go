package domain

import (
	"time"

	"github.com/google/uuid"
)

// GuestSessionState represents the lifecycle state of a guest session.
type GuestSessionState string

const (
	// SessionStateInLobby is the waiting state a guest occupies before admission.
	SessionStateInLobby GuestSessionState = "in_lobby"
	// SessionStateInProject is an admitted guest, counted against project capacity.
	SessionStateInProject GuestSessionState = "in_project"
	// SessionStatePromoted marks a guest who has since become a full project member.
	SessionStatePromoted GuestSessionState = "promoted_to_project_member"
	// SessionStateEnded is terminal. No further transitions are accepted.
	SessionStateEnded GuestSessionState = "ended"
)

// GuestSession records one admission attempt of a user into a project.
//
// Sessions are append-only in "new attempt" terms: when a project's access
// code rotates, a returning user gets a new session rather than a mutated old
// one. The current session for a user+project is the most recently created
// one whose ProjectAccessCode matches the project's current access code.
type GuestSession struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	ProjectID         uuid.UUID
	ProjectTenantID   uuid.UUID
	ProjectAccessCode string
	State             GuestSessionState
	CreatedAt         time.Time
	AccessGrantedBy   *uuid.UUID
	AccessGrantedAt   *time.Time
	AccessRevokedBy   *uuid.UUID
	AccessRevokedAt   *time.Time
	EmailedHostAt     *time.Time
}

// IsEnded returns true if the session has reached its terminal state.
func (s *GuestSession) IsEnded() bool {
	return s.State == SessionStateEnded
}

// IsLive returns true if the session has not been ended.
func (s *GuestSession) IsLive() bool {
	return s.State != SessionStateEnded
}

// InProject returns true if the session currently occupies a capacity slot.
func (s *GuestSession) InProject() bool {
	return s.State == SessionStateInProject
}
