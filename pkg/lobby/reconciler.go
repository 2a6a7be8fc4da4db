package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/pkg/domain"
)

// LobbyStateReconciler computes the derived lobby state of a project from
// participant and session data and writes it through the TTL cache.
type LobbyStateReconciler struct {
	projects     ProjectDirectory
	participants ParticipantRegistry
	sessions     GuestSessionStore
	states       LobbyStateStore
	cache        LobbyStateCache
	events       EventPublisher
	maxGuests    int
	logger       *slog.Logger
}

// NewLobbyStateReconciler creates the reconciler.
func NewLobbyStateReconciler(
	projects ProjectDirectory,
	participants ParticipantRegistry,
	sessions GuestSessionStore,
	states LobbyStateStore,
	cache LobbyStateCache,
	events EventPublisher,
	maxGuests int,
	logger *slog.Logger,
) *LobbyStateReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LobbyStateReconciler{
		projects:     projects,
		participants: participants,
		sessions:     sessions,
		states:       states,
		cache:        cache,
		events:       events,
		maxGuests:    maxGuests,
		logger:       logger,
	}
}

// Recalculate derives the project's lobby state from scratch.
//
// Host absence dominates: a project whose owner is not connected is
// HostNotPresent regardless of guest count. Only with the host present does
// the guest-limit check apply, counting in-project sessions deduplicated to
// the most recent per user under the current access code.
//
// If any of the three fetches fails, LobbyStateError is written (best
// effort) and the error is returned; there is no partial credit.
func (r *LobbyStateReconciler) Recalculate(ctx context.Context, projectID uuid.UUID) (*domain.ProjectLobbyState, error) {
	var (
		project  *domain.Project
		parts    []domain.Participant
		sessions []*domain.GuestSession

		projectErr, partsErr, sessionsErr error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		project, projectErr = r.projects.GetProjectByID(ctx, projectID)
	}()
	go func() {
		defer wg.Done()
		parts, partsErr = r.participants.GetParticipantsByProject(ctx, projectID)
	}()
	go func() {
		defer wg.Done()
		sessions, sessionsErr = r.sessions.GetByProjectID(ctx, projectID)
	}()
	wg.Wait()

	if projectErr != nil {
		r.writeBestEffort(ctx, projectID, domain.LobbyStateError)
		return nil, fmt.Errorf("recalculate lobby state for %s: %w", projectID, projectErr)
	}
	if partsErr != nil {
		r.writeBestEffort(ctx, projectID, domain.LobbyStateError)
		return nil, fmt.Errorf("recalculate lobby state for %s: fetch participants: %w", projectID, partsErr)
	}
	if sessionsErr != nil {
		r.writeBestEffort(ctx, projectID, domain.LobbyStateError)
		return nil, fmt.Errorf("recalculate lobby state for %s: fetch sessions: %w", projectID, sessionsErr)
	}

	state := domain.LobbyStateNormal
	if !hostPresent(project.OwnerID, parts) {
		state = domain.LobbyStateHostNotPresent
	} else {
		valid := mostRecentValidSessions(sessions, project.GuestAccessCode)
		if countInProject(valid) >= r.maxGuests {
			state = domain.LobbyStateGuestLimitReached
		}
	}

	return r.write(ctx, projectID, state)
}

func hostPresent(ownerID uuid.UUID, parts []domain.Participant) bool {
	for _, p := range parts {
		if p.UserID == ownerID {
			return true
		}
	}
	return false
}

// write persists the state record (creating it on the first computation for
// a project), updates the cache, and publishes a change event. The cache
// write cannot fail; the store write can and does propagate.
func (r *LobbyStateReconciler) write(ctx context.Context, projectID uuid.UUID, state domain.LobbyState) (*domain.ProjectLobbyState, error) {
	ls := &domain.ProjectLobbyState{
		ProjectID: projectID,
		State:     state,
		UpdatedAt: time.Now(),
	}
	err := r.states.Update(ctx, ls)
	if errors.Is(err, domain.ErrLobbyStateNotFound) {
		err = r.states.Create(ctx, ls)
	}
	if err != nil {
		return nil, fmt.Errorf("persist lobby state for %s: %w", projectID, err)
	}
	r.cache.Set(projectID, ls)
	r.events.Publish(ctx, EventLobbyStateChanged, LobbyStateEvent{ProjectID: projectID, State: state})
	return ls, nil
}

func (r *LobbyStateReconciler) writeBestEffort(ctx context.Context, projectID uuid.UUID, state domain.LobbyState) {
	if _, err := r.write(ctx, projectID, state); err != nil {
		r.logger.Warn("lobby state write failed", "project_id", projectID, "state", state, "error", err)
	}
}

// PushState records an incrementally derived lobby state without a full
// recompute. Best-effort: failures are logged and never block the
// transition that triggered the push.
func (r *LobbyStateReconciler) PushState(ctx context.Context, projectID uuid.UUID, state domain.LobbyState) {
	r.writeBestEffort(ctx, projectID, state)
}

// GetProjectLobbyState is the cache-first read. On a miss it recalculates
// once (get-or-populate). It reports domain.ErrProjectNotFound if the owning
// project cannot be resolved at all.
func (r *LobbyStateReconciler) GetProjectLobbyState(ctx context.Context, projectID uuid.UUID) (*domain.ProjectLobbyState, error) {
	if ls, ok := r.cache.Get(projectID); ok {
		return ls, nil
	}
	return r.Recalculate(ctx, projectID)
}

// CreateProjectLobbyState is the project-created lifecycle hook: it inserts
// the initial Undefined record.
func (r *LobbyStateReconciler) CreateProjectLobbyState(ctx context.Context, projectID uuid.UUID) error {
	ls := &domain.ProjectLobbyState{
		ProjectID: projectID,
		State:     domain.LobbyStateUndefined,
		UpdatedAt: time.Now(),
	}
	if err := r.states.Create(ctx, ls); err != nil {
		return fmt.Errorf("create lobby state for %s: %w", projectID, err)
	}
	r.cache.Set(projectID, ls)
	return nil
}

// DeleteProjectLobbyState is the project-deleted lifecycle hook. A record
// that is already absent is not an error.
func (r *LobbyStateReconciler) DeleteProjectLobbyState(ctx context.Context, projectID uuid.UUID) error {
	err := r.states.Delete(ctx, projectID)
	if err != nil && !errors.Is(err, domain.ErrLobbyStateNotFound) {
		return fmt.Errorf("delete lobby state for %s: %w", projectID, err)
	}
	r.cache.Delete(projectID)
	return nil
}
