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

// TransitionResult is the outcome of a guest-session state transition.
// Expected business outcomes are results, not errors.
type TransitionResult string

const (
	TransitionSuccess       TransitionResult = "success"
	TransitionSameAsCurrent TransitionResult = "same_as_current"
	TransitionSessionEnded  TransitionResult = "session_ended"
	TransitionProjectFull   TransitionResult = "project_full"
	TransitionFailed        TransitionResult = "failed"
)

// TransitionRequest asks for a guest session to be moved to a target state.
type TransitionRequest struct {
	GuestSessionID uuid.UUID
	TargetState    domain.GuestSessionState
}

// TransitionOutcome carries the result code and, where available, the
// session as of the decision.
type TransitionOutcome struct {
	Result  TransitionResult
	Session *domain.GuestSession
}

// SessionLifecycleEngine owns the guest-session state machine.
type SessionLifecycleEngine struct {
	sessions   GuestSessionStore
	projects   ProjectDirectory
	contexts   GuestContextStore
	reconciler *LobbyStateReconciler
	events     EventPublisher
	maxGuests  int
	logger     *slog.Logger
}

// NewSessionLifecycleEngine creates the engine. maxGuests is the project
// guest capacity.
func NewSessionLifecycleEngine(
	sessions GuestSessionStore,
	projects ProjectDirectory,
	contexts GuestContextStore,
	reconciler *LobbyStateReconciler,
	events EventPublisher,
	maxGuests int,
	logger *slog.Logger,
) *SessionLifecycleEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionLifecycleEngine{
		sessions:   sessions,
		projects:   projects,
		contexts:   contexts,
		reconciler: reconciler,
		events:     events,
		maxGuests:  maxGuests,
		logger:     logger,
	}
}

// CreateGuestSession persists a new admission attempt. Any prior live
// session of the same user in the same project is ended first, so a user
// holds at most one live session per project. Ending prior sessions is
// best-effort: a partial failure is logged, not returned, and the new
// session is still created.
func (e *SessionLifecycleEngine) CreateGuestSession(ctx context.Context, session *domain.GuestSession, principalID, tenantID uuid.UUID) (*domain.GuestSession, error) {
	if session == nil || session.UserID == uuid.Nil || session.ProjectID == uuid.Nil {
		return nil, fmt.Errorf("%w: guest session requires user id and project id", domain.ErrValidation)
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if session.State == "" {
		session.State = domain.SessionStateInLobby
	}

	if tenantID != uuid.Nil {
		session.ProjectTenantID = tenantID
	}
	if session.ProjectTenantID == uuid.Nil || session.ProjectAccessCode == "" {
		project, err := e.projects.GetProjectByID(ctx, session.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("resolve project %s: %w", session.ProjectID, err)
		}
		if session.ProjectTenantID == uuid.Nil {
			session.ProjectTenantID = project.TenantID
		}
		if session.ProjectAccessCode == "" {
			session.ProjectAccessCode = project.GuestAccessCode
		}
	}

	e.endPriorSessions(ctx, session.UserID, session.ProjectID, principalID)

	if err := e.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create guest session: %w", err)
	}

	e.events.Publish(ctx, EventGuestSessionCreated, SessionEvent{
		GuestSessionID: session.ID,
		UserID:         session.UserID,
		ProjectID:      session.ProjectID,
		State:          session.State,
	})
	return session, nil
}

// endPriorSessions ends every live session the user holds in the project and
// evicts guest contexts pointing at them. Failures here surface as stale
// sessions on the next capacity read, so they are logged and skipped.
func (e *SessionLifecycleEngine) endPriorSessions(ctx context.Context, userID, projectID, principalID uuid.UUID) {
	prior, err := e.sessions.GetByUserAndProject(ctx, userID, projectID)
	if err != nil {
		e.logger.Error("stale session cleanup failed",
			"user_id", userID, "project_id", projectID, "error", err)
		return
	}
	now := time.Now()
	for _, s := range prior {
		if s.IsEnded() {
			continue
		}
		s.State = domain.SessionStateEnded
		s.AccessRevokedBy = &principalID
		s.AccessRevokedAt = &now
		if err := e.sessions.Update(ctx, s); err != nil {
			e.logger.Error("stale session cleanup failed",
				"guest_session_id", s.ID, "project_id", projectID, "error", err)
			continue
		}
		e.contexts.DeleteByGuestSession(s.ID)
	}
}

// UpdateGuestSessionState is the admission-control core. It evaluates the
// transition decision table and returns a result code; it never returns an
// error and never panics out, because it is invoked from best-effort paths
// as well as explicit user actions. Unexpected failures map to
// TransitionFailed and are logged.
func (e *SessionLifecycleEngine) UpdateGuestSessionState(ctx context.Context, req TransitionRequest, principalID uuid.UUID) (out TransitionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("guest session transition panicked",
				"guest_session_id", req.GuestSessionID, "target_state", req.TargetState, "panic", r)
			out = TransitionOutcome{Result: TransitionFailed}
		}
	}()

	current, err := e.sessions.GetByID(ctx, req.GuestSessionID)
	if err != nil {
		e.logger.Warn("guest session transition: fetch failed",
			"guest_session_id", req.GuestSessionID, "error", err)
		return TransitionOutcome{Result: TransitionFailed}
	}

	// Ended is terminal.
	if current.IsEnded() && req.TargetState != domain.SessionStateEnded {
		return TransitionOutcome{Result: TransitionSessionEnded, Session: current}
	}
	if current.State == req.TargetState {
		return TransitionOutcome{Result: TransitionSameAsCurrent, Session: current}
	}

	project, err := e.projects.GetProjectByID(ctx, current.ProjectID)
	if err != nil {
		e.logger.Warn("guest session transition: project fetch failed",
			"guest_session_id", current.ID, "project_id", current.ProjectID, "error", err)
		return TransitionOutcome{Result: TransitionFailed}
	}

	// The access code rotated since this session was created. The session is
	// stale and must be discarded, not silently re-admitted.
	if project.GuestAccessCode != current.ProjectAccessCode && req.TargetState != domain.SessionStateEnded {
		return TransitionOutcome{Result: TransitionSessionEnded, Session: current}
	}

	available, err := e.availableCapacity(ctx, project)
	if err != nil {
		e.logger.Warn("guest session transition: capacity read failed",
			"project_id", project.ID, "error", err)
		return TransitionOutcome{Result: TransitionFailed}
	}
	if req.TargetState == domain.SessionStateInProject && available < 1 {
		e.reconciler.PushState(ctx, project.ID, domain.LobbyStateGuestLimitReached)
		return TransitionOutcome{Result: TransitionProjectFull, Session: current}
	}

	wasInProject := current.InProject()
	now := time.Now()
	current.State = req.TargetState
	switch req.TargetState {
	case domain.SessionStateInProject:
		current.AccessGrantedBy = &principalID
		current.AccessGrantedAt = &now
	case domain.SessionStateEnded:
		current.AccessRevokedBy = &principalID
		current.AccessRevokedAt = &now
	}

	if err := e.sessions.Update(ctx, current); err != nil {
		e.logger.Warn("guest session transition: update failed",
			"guest_session_id", current.ID, "error", err)
		return TransitionOutcome{Result: TransitionFailed}
	}

	if req.TargetState == domain.SessionStateEnded {
		e.contexts.DeleteByGuestSession(current.ID)
	}

	// Incremental lobby-state pushes. These approximate the transition's
	// effect without a full recompute; RecalculateProjectLobbyState stays
	// the source of truth on any ambiguity.
	switch {
	case req.TargetState == domain.SessionStateInProject && available == 1:
		// Filled the last open slot.
		e.reconciler.PushState(ctx, project.ID, domain.LobbyStateGuestLimitReached)
	case wasInProject && req.TargetState != domain.SessionStateInProject && available <= 0:
		// Freed the previously-last slot.
		e.reconciler.PushState(ctx, project.ID, domain.LobbyStateNormal)
	}

	e.events.Publish(ctx, EventGuestSessionStateChanged, SessionEvent{
		GuestSessionID: current.ID,
		UserID:         current.UserID,
		ProjectID:      current.ProjectID,
		State:          current.State,
	})
	return TransitionOutcome{Result: TransitionSuccess, Session: current}
}

// availableCapacity is the project guest capacity minus the deduplicated
// in-project session count.
func (e *SessionLifecycleEngine) availableCapacity(ctx context.Context, project *domain.Project) (int, error) {
	all, err := e.sessions.GetByProjectID(ctx, project.ID)
	if err != nil {
		return 0, err
	}
	valid := mostRecentValidSessions(all, project.GuestAccessCode)
	return e.maxGuests - countInProject(valid), nil
}

// MostRecentValidSessionsByProject returns at most one session per user for
// the project: the latest one created under the project's current access
// code that has not been promoted to full membership.
func (e *SessionLifecycleEngine) MostRecentValidSessionsByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.GuestSession, error) {
	project, err := e.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("resolve project %s: %w", projectID, err)
	}
	all, err := e.sessions.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch sessions for project %s: %w", projectID, err)
	}
	return mostRecentValidSessions(all, project.GuestAccessCode), nil
}

// EndGuestSessionsForProject ends the project's guest sessions. With
// onlyKickGuestsInProject set, only admitted (in-project) sessions are
// ended; otherwise every live session is. Per-session failures are logged
// and do not abort the batch.
func (e *SessionLifecycleEngine) EndGuestSessionsForProject(ctx context.Context, projectID, principalID uuid.UUID, onlyKickGuestsInProject bool) error {
	all, err := e.sessions.GetByProjectID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("fetch sessions for project %s: %w", projectID, err)
	}

	var targets []*domain.GuestSession
	for _, s := range all {
		if onlyKickGuestsInProject {
			if s.InProject() {
				targets = append(targets, s)
			}
		} else if s.IsLive() {
			targets = append(targets, s)
		}
	}

	now := time.Now()
	var wg sync.WaitGroup
	for _, s := range targets {
		wg.Add(1)
		go func(s *domain.GuestSession) {
			defer wg.Done()
			s.State = domain.SessionStateEnded
			s.AccessRevokedBy = &principalID
			s.AccessRevokedAt = &now
			if err := e.sessions.Update(ctx, s); err != nil {
				e.logger.Error("end guest session failed",
					"guest_session_id", s.ID, "project_id", projectID, "error", err)
				return
			}
			e.contexts.DeleteByGuestSession(s.ID)
		}(s)
	}
	wg.Wait()

	if _, err := e.reconciler.Recalculate(ctx, projectID); err != nil {
		e.logger.Warn("lobby state recalculation after bulk end failed",
			"project_id", projectID, "error", err)
	}
	e.events.Publish(ctx, EventGuestSessionsForProjectDeleted, ProjectEvent{ProjectID: projectID})
	return nil
}

// DeleteGuestSession hard-deletes a session (account-closure style flows).
// A session that is already gone is not an error.
func (e *SessionLifecycleEngine) DeleteGuestSession(ctx context.Context, id uuid.UUID) error {
	session, err := e.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrGuestSessionNotFound) {
			return nil
		}
		return fmt.Errorf("fetch guest session %s: %w", id, err)
	}

	if err := e.sessions.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrGuestSessionNotFound) {
		return fmt.Errorf("delete guest session %s: %w", id, err)
	}
	e.contexts.DeleteByGuestSession(id)

	if _, err := e.reconciler.Recalculate(ctx, session.ProjectID); err != nil {
		e.logger.Warn("lobby state recalculation after delete failed",
			"project_id", session.ProjectID, "error", err)
	}
	e.events.Publish(ctx, EventGuestSessionDeleted, SessionEvent{
		GuestSessionID: session.ID,
		UserID:         session.UserID,
		ProjectID:      session.ProjectID,
		State:          session.State,
	})
	return nil
}
