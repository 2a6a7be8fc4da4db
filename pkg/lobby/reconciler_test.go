package lobby

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/pkg/domain"
)

func TestRecalculate_HostAbsenceDominates(t *testing.T) {
	e := newEnv(10)
	project := testProject("code-1")
	e.projects.projects[project.ID] = project
	// Nobody connected, and more guests on record than the capacity allows.
	for i := 0; i < 11; i++ {
		s := testSession(project.ID, "code-1", domain.SessionStateInProject)
		e.sessions.sessions[s.ID] = s
	}

	state, err := e.reconciler.Recalculate(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}
	if state.State != domain.LobbyStateHostNotPresent {
		t.Errorf("state = %q, want %q", state.State, domain.LobbyStateHostNotPresent)
	}
}

func TestRecalculate_GuestCountAgainstCapacity(t *testing.T) {
	tests := []struct {
		name      string
		inProject int
		inLobby   int
		maxGuests int
		want      domain.LobbyState
	}{
		{"well under capacity", 5, 9, 10, domain.LobbyStateNormal},
		{"one under capacity", 9, 0, 10, domain.LobbyStateNormal},
		{"at capacity", 10, 1, 10, domain.LobbyStateGuestLimitReached},
		{"single slot occupied", 1, 10, 1, domain.LobbyStateGuestLimitReached},
		{"empty project", 0, 0, 10, domain.LobbyStateNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(tt.maxGuests)
			project := testProject("code-1")
			e.addProject(project)
			for i := 0; i < tt.inProject; i++ {
				s := testSession(project.ID, "code-1", domain.SessionStateInProject)
				e.sessions.sessions[s.ID] = s
			}
			for i := 0; i < tt.inLobby; i++ {
				s := testSession(project.ID, "code-1", domain.SessionStateInLobby)
				e.sessions.sessions[s.ID] = s
			}

			state, err := e.reconciler.Recalculate(context.Background(), project.ID)
			if err != nil {
				t.Fatalf("Recalculate failed: %v", err)
			}
			if state.State != tt.want {
				t.Errorf("state = %q, want %q", state.State, tt.want)
			}
		})
	}
}

func TestRecalculate_StaleAndDuplicateSessionsIgnored(t *testing.T) {
	e := newEnv(2)
	project := testProject("code-new")
	e.addProject(project)

	// One user with a stale in-project session under the rotated code and a
	// fresh in-lobby session; another user admitted under the current code.
	userID := uuid.New()
	stale := testSession(project.ID, "code-old", domain.SessionStateInProject)
	stale.UserID = userID
	stale.CreatedAt = time.Now().Add(-time.Hour)
	fresh := testSession(project.ID, "code-new", domain.SessionStateInLobby)
	fresh.UserID = userID
	admitted := testSession(project.ID, "code-new", domain.SessionStateInProject)
	for _, s := range []*domain.GuestSession{stale, fresh, admitted} {
		e.sessions.sessions[s.ID] = s
	}

	state, err := e.reconciler.Recalculate(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}
	// Only the admitted session occupies a slot: 1 of 2 used.
	if state.State != domain.LobbyStateNormal {
		t.Errorf("state = %q, want %q", state.State, domain.LobbyStateNormal)
	}
}

func TestRecalculate_FetchFailureWritesErrorState(t *testing.T) {
	e := newEnv(10)
	project := testProject("code-1")
	e.addProject(project)
	e.parts.err = errors.New("registry down")

	_, err := e.reconciler.Recalculate(context.Background(), project.ID)
	if err == nil {
		t.Fatal("Recalculate should fail when a fetch fails")
	}
	if got := e.states.current(project.ID); got != domain.LobbyStateError {
		t.Errorf("persisted state = %q, want %q", got, domain.LobbyStateError)
	}
}

func TestRecalculate_PersistsCachesAndPublishes(t *testing.T) {
	e := newEnv(10)
	project := testProject("code-1")
	e.addProject(project)

	state, err := e.reconciler.Recalculate(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}
	if got := e.states.current(project.ID); got != state.State {
		t.Errorf("persisted state = %q, want %q", got, state.State)
	}
	cached, ok := e.cache.Get(project.ID)
	if !ok {
		t.Fatal("state not cached")
	}
	if cached.State != state.State {
		t.Errorf("cached state = %q, want %q", cached.State, state.State)
	}
	if !e.events.published(EventLobbyStateChanged) {
		t.Error("lobby_state.changed event not published")
	}
}

func TestGetProjectLobbyState_CacheFirst(t *testing.T) {
	e := newEnv(10)
	projectID := uuid.New()
	// No project registered: a recompute would fail. The cached entry must be
	// served without one.
	e.cache.Set(projectID, &domain.ProjectLobbyState{
		ProjectID: projectID,
		State:     domain.LobbyStateNormal,
		UpdatedAt: time.Now(),
	})

	state, err := e.reconciler.GetProjectLobbyState(context.Background(), projectID)
	if err != nil {
		t.Fatalf("GetProjectLobbyState failed: %v", err)
	}
	if state.State != domain.LobbyStateNormal {
		t.Errorf("state = %q, want cached %q", state.State, domain.LobbyStateNormal)
	}
}

func TestGetProjectLobbyState_MissTriggersRecalculate(t *testing.T) {
	e := newEnv(10)
	project := testProject("code-1")
	e.addProject(project)

	state, err := e.reconciler.GetProjectLobbyState(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("GetProjectLobbyState failed: %v", err)
	}
	if state.State != domain.LobbyStateNormal {
		t.Errorf("state = %q, want %q", state.State, domain.LobbyStateNormal)
	}
	if _, ok := e.cache.Get(project.ID); !ok {
		t.Error("recomputed state not cached")
	}
}

func TestCreateAndDeleteProjectLobbyState(t *testing.T) {
	e := newEnv(10)
	projectID := uuid.New()

	if err := e.reconciler.CreateProjectLobbyState(context.Background(), projectID); err != nil {
		t.Fatalf("CreateProjectLobbyState failed: %v", err)
	}
	if got := e.states.current(projectID); got != domain.LobbyStateUndefined {
		t.Errorf("initial state = %q, want %q", got, domain.LobbyStateUndefined)
	}

	if err := e.reconciler.DeleteProjectLobbyState(context.Background(), projectID); err != nil {
		t.Fatalf("DeleteProjectLobbyState failed: %v", err)
	}
	if _, ok := e.cache.Get(projectID); ok {
		t.Error("cache entry survived delete")
	}

	// Deleting again is fine.
	if err := e.reconciler.DeleteProjectLobbyState(context.Background(), projectID); err != nil {
		t.Errorf("second DeleteProjectLobbyState = %v, want nil", err)
	}
}
