package domain

import "github.com/google/uuid"

// Project is the read view of a project as served by the project directory.
type Project struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	OwnerID          uuid.UUID
	Name             string
	GuestAccessCode  string
	GuestModeEnabled bool
}

// Participant is a currently connected member of a project, as reported by
// the participant registry.
type Participant struct {
	UserID uuid.UUID
}

// User is the read view of an account as served by the user directory.
type User struct {
	ID            uuid.UUID
	Email         string
	Name          string
	Locked        bool
	EmailVerified bool
}
