// Package lobby implements the guest admission and lobby capacity control
// engine: the guest-session state machine, the derived lobby state of a
// project, the capacity-aware admission decision, the guest verification
// table, and the orchestration that ties session creation to membership
// granting.
//
// The package owns no transport and no storage. All collaborators are
// injected through the interfaces below; Postgres-backed stores live in
// pkg/repository and TTL caches in pkg/cache.
package lobby

import (
	"context"

	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/pkg/domain"
)

// ProjectDirectory is read access to project metadata and full-member lists,
// plus the membership grant used when admitting a new guest.
type ProjectDirectory interface {
	GetProjectByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	GetProjectByAccessCode(ctx context.Context, code string) (*domain.Project, error)
	// GetFullMemberUserIDs returns the user ids holding standing membership
	// in the project, scoped to the project's tenant.
	GetFullMemberUserIDs(ctx context.Context, projectID, tenantID uuid.UUID) ([]uuid.UUID, error)
	GrantMembership(ctx context.Context, userID, projectID uuid.UUID) error
}

// ParticipantRegistry is read access to the currently connected participants
// of a project. Used to detect host presence.
type ParticipantRegistry interface {
	GetParticipantsByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Participant, error)
}

// UserDirectory is read access to user accounts.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByUsernameOrEmail(ctx context.Context, name string) (*domain.User, error)
}

// GuestSessionStore persists guest sessions.
type GuestSessionStore interface {
	Create(ctx context.Context, session *domain.GuestSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GuestSession, error)
	Update(ctx context.Context, session *domain.GuestSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByProjectID(ctx context.Context, projectID uuid.UUID) ([]*domain.GuestSession, error)
	GetByUserAndProject(ctx context.Context, userID, projectID uuid.UUID) ([]*domain.GuestSession, error)
}

// GuestInviteStore persists guest invites.
type GuestInviteStore interface {
	Create(ctx context.Context, invite *domain.GuestInvite) error
	GetByProjectAndEmail(ctx context.Context, projectID uuid.UUID, email string) ([]*domain.GuestInvite, error)
}

// LobbyStateStore persists the per-project lobby state record.
type LobbyStateStore interface {
	Get(ctx context.Context, projectID uuid.UUID) (*domain.ProjectLobbyState, error)
	Create(ctx context.Context, state *domain.ProjectLobbyState) error
	Update(ctx context.Context, state *domain.ProjectLobbyState) error
	Delete(ctx context.Context, projectID uuid.UUID) error
}

// LobbyStateCache is the TTL cache in front of the lobby state store.
// A write failure here must never block the operation it accompanies.
type LobbyStateCache interface {
	Get(projectID uuid.UUID) (*domain.ProjectLobbyState, bool)
	Set(projectID uuid.UUID, state *domain.ProjectLobbyState)
	Delete(projectID uuid.UUID)
}

// GuestContextStore maps a caller's session identifier to the guest context
// it is currently attached to. Entries must also be evictable by guest
// session id, so session teardown can clear every caller pointing at it.
type GuestContextStore interface {
	Get(callerSessionID string) (*domain.ProjectGuestContext, bool)
	Set(callerSessionID string, gc *domain.ProjectGuestContext)
	Delete(callerSessionID string)
	DeleteByGuestSession(guestSessionID uuid.UUID)
}

// EventPublisher is fire-and-forget notification of session and lobby
// changes. Publishing never blocks the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any)
}

// HostNotifier notifies a project owner that a guest is waiting in the
// lobby. Best-effort; failures are logged, never surfaced.
type HostNotifier interface {
	NotifyHostOfWaitingGuest(ctx context.Context, hostEmail, guestName, projectName string) error
}

// Event names published by the engine and the reconciler.
const (
	EventGuestSessionCreated            = "guest_session.created"
	EventGuestSessionStateChanged       = "guest_session.state_changed"
	EventGuestSessionDeleted            = "guest_session.deleted"
	EventGuestSessionsForProjectDeleted = "guest_sessions.project_cleared"
	EventLobbyStateChanged              = "lobby_state.changed"
)

// SessionEvent is the payload for session-scoped events.
type SessionEvent struct {
	GuestSessionID uuid.UUID
	UserID         uuid.UUID
	ProjectID      uuid.UUID
	State          domain.GuestSessionState
}

// ProjectEvent is the payload for project-scoped events.
type ProjectEvent struct {
	ProjectID uuid.UUID
}

// LobbyStateEvent is the payload for lobby-state change events.
type LobbyStateEvent struct {
	ProjectID uuid.UUID
	State     domain.LobbyState
}
