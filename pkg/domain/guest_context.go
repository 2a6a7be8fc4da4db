package domain

import "github.com/google/uuid"

// ProjectGuestContext points a caller's session (a browser tab, an API
// client) at the guest session and project it is currently attached to.
// It is a cache entry, not a source of truth: every access decision must
// re-validate it against the underlying GuestSession record.
type ProjectGuestContext struct {
	GuestSessionID uuid.UUID
	ProjectID      uuid.UUID
	TenantID       uuid.UUID
	GuestState     GuestSessionState
}

// IsActive returns true if the context is fully populated and its guest
// session has not been ended.
func (c *ProjectGuestContext) IsActive() bool {
	if c == nil {
		return false
	}
	return c.GuestSessionID != uuid.Nil &&
		c.ProjectID != uuid.Nil &&
		c.TenantID != uuid.Nil &&
		c.GuestState != SessionStateEnded
}

// IsFor returns true if the context is active and bound to the given project.
func (c *ProjectGuestContext) IsFor(projectID uuid.UUID) bool {
	return c.IsActive() && c.ProjectID == projectID
}
