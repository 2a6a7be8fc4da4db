package lobby

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/pkg/domain"
)

// In-memory fakes for the injected collaborators. Guarded by mutexes because
// the engine and the reconciler fan out to goroutines.

type fakeProjectDirectory struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*domain.Project
	members  map[uuid.UUID][]uuid.UUID

	getErr     error
	membersErr error
	grantErr   error

	grants   [][2]uuid.UUID // userID, projectID
	recorder *callRecorder
}

func (f *fakeProjectDirectory) GetProjectByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return p, nil
}

func (f *fakeProjectDirectory) GetProjectByAccessCode(_ context.Context, code string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, p := range f.projects {
		if p.GuestAccessCode == code {
			return p, nil
		}
	}
	return nil, domain.ErrProjectNotFound
}

func (f *fakeProjectDirectory) GetFullMemberUserIDs(_ context.Context, projectID, _ uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.membersErr != nil {
		return nil, f.membersErr
	}
	return f.members[projectID], nil
}

func (f *fakeProjectDirectory) GrantMembership(_ context.Context, userID, projectID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.grantErr != nil {
		return f.grantErr
	}
	f.grants = append(f.grants, [2]uuid.UUID{userID, projectID})
	f.recorder.record("grant_membership")
	return nil
}

type fakeParticipantRegistry struct {
	mu    sync.Mutex
	parts []domain.Participant
	err   error
}

func (f *fakeParticipantRegistry) GetParticipantsByProject(_ context.Context, _ uuid.UUID) ([]domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.parts, nil
}

type fakeUserDirectory struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User

	getErr    error
	lookupErr error
}

func (f *fakeUserDirectory) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserDirectory) GetUserByUsernameOrEmail(_ context.Context, name string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, u := range f.users {
		if u.Email == name || u.Name == name {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.GuestSession

	createErr error
	getErr    error
	updateErr error
	listErr   error

	updateCalls int
	recorder    *callRecorder
}

func newFakeSessionStore(sessions ...*domain.GuestSession) *fakeSessionStore {
	f := &fakeSessionStore{sessions: make(map[uuid.UUID]*domain.GuestSession)}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeSessionStore) Create(_ context.Context, session *domain.GuestSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *session
	f.sessions[session.ID] = &cp
	f.recorder.record("create_session")
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.GuestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrGuestSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) Update(_ context.Context, session *domain.GuestSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.sessions[session.ID]; !ok {
		return domain.ErrGuestSessionNotFound
	}
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return domain.ErrGuestSessionNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) GetByProjectID(_ context.Context, projectID uuid.UUID) ([]*domain.GuestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.GuestSession
	for _, s := range f.sessions {
		if s.ProjectID == projectID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) GetByUserAndProject(_ context.Context, userID, projectID uuid.UUID) ([]*domain.GuestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.GuestSession
	for _, s := range f.sessions {
		if s.UserID == userID && s.ProjectID == projectID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) get(id uuid.UUID) *domain.GuestSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

type fakeInviteStore struct {
	invites []*domain.GuestInvite
	err     error
}

func (f *fakeInviteStore) Create(_ context.Context, invite *domain.GuestInvite) error {
	f.invites = append(f.invites, invite)
	return nil
}

func (f *fakeInviteStore) GetByProjectAndEmail(_ context.Context, projectID uuid.UUID, _ string) ([]*domain.GuestInvite, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.GuestInvite
	for _, i := range f.invites {
		if i.ProjectID == projectID {
			out = append(out, i)
		}
	}
	return out, nil
}

type fakeStateStore struct {
	mu     sync.Mutex
	states map[uuid.UUID]*domain.ProjectLobbyState

	createErr error
	updateErr error
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[uuid.UUID]*domain.ProjectLobbyState)}
}

func (f *fakeStateStore) Get(_ context.Context, projectID uuid.UUID) (*domain.ProjectLobbyState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[projectID]
	if !ok {
		return nil, domain.ErrLobbyStateNotFound
	}
	return s, nil
}

func (f *fakeStateStore) Create(_ context.Context, state *domain.ProjectLobbyState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.states[state.ProjectID] = state
	return nil
}

func (f *fakeStateStore) Update(_ context.Context, state *domain.ProjectLobbyState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.states[state.ProjectID]; !ok {
		return domain.ErrLobbyStateNotFound
	}
	f.states[state.ProjectID] = state
	return nil
}

func (f *fakeStateStore) Delete(_ context.Context, projectID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.states[projectID]; !ok {
		return domain.ErrLobbyStateNotFound
	}
	delete(f.states, projectID)
	return nil
}

func (f *fakeStateStore) current(projectID uuid.UUID) domain.LobbyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[projectID]
	if !ok {
		return ""
	}
	return s.State
}

type fakeStateCache struct {
	mu     sync.Mutex
	states map[uuid.UUID]*domain.ProjectLobbyState
}

func newFakeStateCache() *fakeStateCache {
	return &fakeStateCache{states: make(map[uuid.UUID]*domain.ProjectLobbyState)}
}

func (f *fakeStateCache) Get(projectID uuid.UUID) (*domain.ProjectLobbyState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[projectID]
	return s, ok
}

func (f *fakeStateCache) Set(projectID uuid.UUID, state *domain.ProjectLobbyState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[projectID] = state
}

func (f *fakeStateCache) Delete(projectID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, projectID)
}

type fakeContextStore struct {
	mu       sync.Mutex
	contexts map[string]*domain.ProjectGuestContext
}

func newFakeContextStore() *fakeContextStore {
	return &fakeContextStore{contexts: make(map[string]*domain.ProjectGuestContext)}
}

func (f *fakeContextStore) Get(callerSessionID string) (*domain.ProjectGuestContext, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gc, ok := f.contexts[callerSessionID]
	return gc, ok
}

func (f *fakeContextStore) Set(callerSessionID string, gc *domain.ProjectGuestContext) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contexts[callerSessionID] = gc
}

func (f *fakeContextStore) Delete(callerSessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.contexts, callerSessionID)
}

func (f *fakeContextStore) DeleteByGuestSession(guestSessionID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, gc := range f.contexts {
		if gc.GuestSessionID == guestSessionID {
			delete(f.contexts, k)
		}
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) Publish(_ context.Context, event string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakePublisher) published(event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e == event {
			return true
		}
	}
	return false
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNotifier) NotifyHostOfWaitingGuest(_ context.Context, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

// callRecorder captures cross-fake ordering, for assertions like
// "session created before membership granted". Nil-safe.
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(call string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

// env bundles a fully wired engine stack over fakes.
type env struct {
	projects *fakeProjectDirectory
	parts    *fakeParticipantRegistry
	users    *fakeUserDirectory
	sessions *fakeSessionStore
	invites  *fakeInviteStore
	states   *fakeStateStore
	cache    *fakeStateCache
	contexts *fakeContextStore
	events   *fakePublisher
	notifier *fakeNotifier
	recorder *callRecorder

	reconciler   *LobbyStateReconciler
	engine       *SessionLifecycleEngine
	verifier     *GuestVerifier
	orchestrator *GuestContextOrchestrator
}

func newEnv(maxGuests int) *env {
	e := &env{
		projects: &fakeProjectDirectory{
			projects: make(map[uuid.UUID]*domain.Project),
			members:  make(map[uuid.UUID][]uuid.UUID),
		},
		parts:    &fakeParticipantRegistry{},
		users:    &fakeUserDirectory{users: make(map[uuid.UUID]*domain.User)},
		sessions: newFakeSessionStore(),
		invites:  &fakeInviteStore{},
		states:   newFakeStateStore(),
		cache:    newFakeStateCache(),
		contexts: newFakeContextStore(),
		events:   &fakePublisher{},
		notifier: &fakeNotifier{},
		recorder: &callRecorder{},
	}
	e.projects.recorder = e.recorder
	e.sessions.recorder = e.recorder

	e.reconciler = NewLobbyStateReconciler(
		e.projects, e.parts, e.sessions, e.states, e.cache, e.events, maxGuests, nil,
	)
	e.engine = NewSessionLifecycleEngine(
		e.sessions, e.projects, e.contexts, e.reconciler, e.events, maxGuests, nil,
	)
	e.verifier = NewGuestVerifier(e.projects, e.users, e.invites, true, nil)
	e.orchestrator = NewGuestContextOrchestrator(
		e.engine, e.reconciler, e.verifier, e.projects, e.users,
		e.sessions, e.contexts, e.notifier, nil,
	)
	return e
}

// addProject registers a project with its host present by default.
func (e *env) addProject(p *domain.Project) {
	e.projects.projects[p.ID] = p
	e.parts.parts = append(e.parts.parts, domain.Participant{UserID: p.OwnerID})
}

func (e *env) addUser(u *domain.User) {
	e.users.users[u.ID] = u
}
