package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/pkg/domain"
)

// CurrentProjectState answers "what should happen to this caller right now
// for this project".
type CurrentProjectState struct {
	Project      *domain.Project
	LobbyState   *domain.ProjectLobbyState
	GuestSession *domain.GuestSession
	HasAccess    bool
}

// GuestContextOrchestrator composes the verifier, the lifecycle engine and
// the reconciler into the top-level guest entry point.
type GuestContextOrchestrator struct {
	lifecycle  *SessionLifecycleEngine
	reconciler *LobbyStateReconciler
	verifier   *GuestVerifier
	projects   ProjectDirectory
	users      UserDirectory
	sessions   GuestSessionStore
	contexts   GuestContextStore
	notifier   HostNotifier
	logger     *slog.Logger
}

// NewGuestContextOrchestrator creates the orchestrator. notifier may be nil
// to disable host emails.
func NewGuestContextOrchestrator(
	lifecycle *SessionLifecycleEngine,
	reconciler *LobbyStateReconciler,
	verifier *GuestVerifier,
	projects ProjectDirectory,
	users UserDirectory,
	sessions GuestSessionStore,
	contexts GuestContextStore,
	notifier HostNotifier,
	logger *slog.Logger,
) *GuestContextOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuestContextOrchestrator{
		lifecycle:  lifecycle,
		reconciler: reconciler,
		verifier:   verifier,
		projects:   projects,
		users:      users,
		sessions:   sessions,
		contexts:   contexts,
		notifier:   notifier,
		logger:     logger,
	}
}

// SetProjectGuestContext attaches the caller to a project lobby, or clears
// the attachment when projectID is nil. It returns either a well-defined
// CurrentProjectState or a single orchestration-level error; it never
// returns a success that represents an inconsistent state.
func (o *GuestContextOrchestrator) SetProjectGuestContext(ctx context.Context, callerSessionID string, projectID uuid.UUID, accessCode string, currentUserID, currentUserTenantID uuid.UUID) (*CurrentProjectState, error) {
	if callerSessionID == "" {
		return nil, fmt.Errorf("%w: caller session id is required", domain.ErrValidation)
	}
	if projectID == uuid.Nil {
		return o.clearGuestContext(ctx, callerSessionID, currentUserID)
	}

	// Service-to-service lookup: not scoped to the caller's tenant, since a
	// guest enters from outside the project's tenant.
	project, err := o.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		o.logger.Warn("set guest context: project fetch failed", "project_id", projectID, "error", err)
		return nil, fmt.Errorf("resolve project %s: %w", projectID, domain.ErrProjectUnavailable)
	}

	var (
		gc        *domain.ProjectGuestContext
		memberIDs []uuid.UUID
		memberErr error
	)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		gc, _ = o.contexts.Get(callerSessionID)
	}()
	go func() {
		defer wg.Done()
		memberIDs, memberErr = o.projects.GetFullMemberUserIDs(ctx, project.ID, project.TenantID)
	}()
	wg.Wait()
	if memberErr != nil {
		o.logger.Warn("set guest context: membership fetch failed", "project_id", projectID, "error", memberErr)
		return nil, fmt.Errorf("fetch members of project %s: %w", projectID, domain.ErrMembershipUnavailable)
	}

	isFullMember := slices.Contains(memberIDs, currentUserID)

	// A guest who has since been promoted to full membership no longer needs
	// the context to drive access. This is the only path that drops a
	// context without an explicit session end.
	if gc.IsActive() && isFullMember {
		o.contexts.Delete(callerSessionID)
		gc = nil
	}

	// The context is a pointer, not a source of truth: re-validate against
	// the session record before trusting it for an access decision.
	var session *domain.GuestSession
	userHasAccess := isFullMember
	if gc.IsActive() {
		session, err = o.sessions.GetByID(ctx, gc.GuestSessionID)
		switch {
		case errors.Is(err, domain.ErrGuestSessionNotFound):
			o.contexts.Delete(callerSessionID)
			gc = nil
		case err != nil:
			return nil, fmt.Errorf("validate guest session %s: %w", gc.GuestSessionID, err)
		default:
			userHasAccess = session.State == domain.SessionStateInProject ||
				session.State == domain.SessionStatePromoted
		}
	}

	if userHasAccess {
		// Fast path for already-admitted callers; no new session.
		return &CurrentProjectState{
			Project:      project,
			LobbyState:   o.lobbyState(ctx, project.ID),
			GuestSession: session,
			HasAccess:    true,
		}, nil
	}

	if gc.IsFor(project.ID) {
		// Already waiting in this project's lobby; no new admission attempt.
		return &CurrentProjectState{
			Project:      project,
			LobbyState:   o.lobbyState(ctx, project.ID),
			GuestSession: session,
			HasAccess:    false,
		}, nil
	}

	return o.admitNewGuest(ctx, callerSessionID, project, currentUserID, currentUserTenantID, accessCode, isFullMember)
}

// admitNewGuest verifies the caller and creates a fresh lobby session.
// The membership grant must not be issued before the guest session exists:
// a member without a guest record breaks capacity accounting and
// revocation.
func (o *GuestContextOrchestrator) admitNewGuest(ctx context.Context, callerSessionID string, project *domain.Project, currentUserID, currentUserTenantID uuid.UUID, accessCode string, isFullMember bool) (*CurrentProjectState, error) {
	user, err := o.users.GetUser(ctx, currentUserID)
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", currentUserID, err)
	}

	outcome := o.verifier.VerifyGuest(ctx, VerifyGuestRequest{
		Username:          user.Email,
		ProjectAccessCode: accessCode,
		ProjectID:         project.ID,
	}, project, currentUserTenantID)
	if outcome.Result != VerifySuccess {
		return nil, fmt.Errorf("%w: %s (%s)", domain.ErrGuestVerificationFailed, outcome.Result, outcome.Message)
	}

	session, err := o.lifecycle.CreateGuestSession(ctx, &domain.GuestSession{
		UserID:            currentUserID,
		ProjectID:         project.ID,
		ProjectTenantID:   project.TenantID,
		ProjectAccessCode: project.GuestAccessCode,
		State:             domain.SessionStateInLobby,
	}, currentUserID, project.TenantID)
	if err != nil {
		return nil, fmt.Errorf("create guest session: %w", err)
	}

	o.contexts.Set(callerSessionID, &domain.ProjectGuestContext{
		GuestSessionID: session.ID,
		ProjectID:      project.ID,
		TenantID:       project.TenantID,
		GuestState:     session.State,
	})

	if !isFullMember {
		if err := o.projects.GrantMembership(ctx, currentUserID, project.ID); err != nil {
			return nil, fmt.Errorf("grant membership in project %s: %w", project.ID, err)
		}
	}

	o.notifyHost(ctx, project, user, session)

	// The caller still has to be promoted out of the lobby by a separate
	// in-project transition.
	return &CurrentProjectState{
		Project:      project,
		LobbyState:   o.lobbyState(ctx, project.ID),
		GuestSession: session,
		HasAccess:    false,
	}, nil
}

// clearGuestContext ends the caller's current guest session, if any, and
// drops the context entry.
func (o *GuestContextOrchestrator) clearGuestContext(ctx context.Context, callerSessionID string, currentUserID uuid.UUID) (*CurrentProjectState, error) {
	gc, ok := o.contexts.Get(callerSessionID)
	if ok && gc.GuestSessionID != uuid.Nil {
		out := o.lifecycle.UpdateGuestSessionState(ctx, TransitionRequest{
			GuestSessionID: gc.GuestSessionID,
			TargetState:    domain.SessionStateEnded,
		}, currentUserID)
		switch out.Result {
		case TransitionSuccess, TransitionSameAsCurrent, TransitionSessionEnded:
		default:
			return nil, fmt.Errorf("end guest session %s: %w", gc.GuestSessionID, domain.ErrGuestContextClearFailed)
		}
	}
	o.contexts.Delete(callerSessionID)
	return &CurrentProjectState{HasAccess: false}, nil
}

// lobbyState is a best-effort read; a failed lookup leaves the field nil
// rather than failing the caller's primary operation.
func (o *GuestContextOrchestrator) lobbyState(ctx context.Context, projectID uuid.UUID) *domain.ProjectLobbyState {
	ls, err := o.reconciler.GetProjectLobbyState(ctx, projectID)
	if err != nil {
		o.logger.Warn("lobby state read failed", "project_id", projectID, "error", err)
		return nil
	}
	return ls
}

// notifyHost emails the project owner that a guest is waiting. Sent at most
// once per session; best-effort.
func (o *GuestContextOrchestrator) notifyHost(ctx context.Context, project *domain.Project, guest *domain.User, session *domain.GuestSession) {
	if o.notifier == nil || session.EmailedHostAt != nil {
		return
	}
	owner, err := o.users.GetUser(ctx, project.OwnerID)
	if err != nil {
		o.logger.Warn("host notification: owner lookup failed",
			"project_id", project.ID, "owner_id", project.OwnerID, "error", err)
		return
	}
	guestName := guest.Name
	if guestName == "" {
		guestName = guest.Email
	}
	if err := o.notifier.NotifyHostOfWaitingGuest(ctx, owner.Email, guestName, project.Name); err != nil {
		o.logger.Warn("host notification failed", "project_id", project.ID, "error", err)
		return
	}
	now := time.Now()
	session.EmailedHostAt = &now
	if err := o.sessions.Update(ctx, session); err != nil {
		o.logger.Warn("host notification: stamping session failed",
			"guest_session_id", session.ID, "error", err)
	}
}
