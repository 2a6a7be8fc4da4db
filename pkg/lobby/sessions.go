package lobby

import (
	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/pkg/domain"
)

// mostRecentValidSessions reduces a project's sessions to at most one per
// user: the latest-created session under the given access code that has not
// been promoted to full membership. Every read path that computes capacity
// must go through this reduction before counting.
func mostRecentValidSessions(sessions []*domain.GuestSession, accessCode string) []*domain.GuestSession {
	latest := make(map[uuid.UUID]*domain.GuestSession)
	for _, s := range sessions {
		if s.ProjectAccessCode != accessCode || s.State == domain.SessionStatePromoted {
			continue
		}
		if prev, ok := latest[s.UserID]; !ok || s.CreatedAt.After(prev.CreatedAt) {
			latest[s.UserID] = s
		}
	}
	out := make([]*domain.GuestSession, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	return out
}

// countInProject counts the sessions occupying a capacity slot.
func countInProject(sessions []*domain.GuestSession) int {
	n := 0
	for _, s := range sessions {
		if s.InProject() {
			n++
		}
	}
	return n
}
