package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GuestInvite records an explicit invitation of a guest into a project under
// a specific access code. Read-mostly; the verifier uses it to distinguish
// invited guests from self-service entry.
type GuestInvite struct {
	ID                uuid.UUID
	ProjectID         uuid.UUID
	InvitedByUserID   uuid.UUID
	Email             string
	ProjectAccessCode string
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// IsExpired returns true if the invite is past its expiry.
func (i *GuestInvite) IsExpired() bool {
	return !i.ExpiresAt.IsZero() && time.Now().After(i.ExpiresAt)
}

// Matches reports whether the invite covers the given email under the given
// access code. Email comparison is case-insensitive.
func (i *GuestInvite) Matches(email, accessCode string) bool {
	return strings.EqualFold(i.Email, email) && i.ProjectAccessCode == accessCode && !i.IsExpired()
}
