// Package guestlobby provides the guest admission and lobby capacity
// control engine as an embeddable library.
//
// Setup:
//
//  1. Run migrations from migrations/ folder using your preferred tool
//  2. Create a GuestLobby instance and mount its routes
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/myapp?sslmode=disable")
//
//	gl, err := guestlobby.New(guestlobby.Config{
//	    DB:           db,
//	    JWTSecret:    "your-secret-key-at-least-32-chars",
//	    Projects:     projectDirectoryClient,
//	    Participants: participantRegistryClient,
//	    Users:        userDirectoryClient,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	gl.Run(ctx) // event consumer
//
//	r := chi.NewRouter()
//	r.Mount("/", gl.Router())
//	http.ListenAndServe(":8080", r)
package guestlobby

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	internalhttp "github.com/collabware/guest-lobby/internal/http"
	"github.com/collabware/guest-lobby/internal/metrics"
	"github.com/collabware/guest-lobby/pkg/cache"
	"github.com/collabware/guest-lobby/pkg/events"
	"github.com/collabware/guest-lobby/pkg/lobby"
	"github.com/collabware/guest-lobby/pkg/repository"
)

// Config holds the configuration for the guest lobby library.
type Config struct {
	// DB is the database connection (required).
	DB *sql.DB

	// JWTSecret validates caller access tokens (required, min 32 chars).
	JWTSecret string

	// Projects, Participants and Users are the collaborator services
	// (required).
	Projects     lobby.ProjectDirectory
	Participants lobby.ParticipantRegistry
	Users        lobby.UserDirectory

	// Notifier emails project owners about waiting guests (optional).
	Notifier lobby.HostNotifier

	// MaxGuestsAllowedInProject is the guest capacity (default: 10).
	MaxGuestsAllowedInProject int

	// GuestModeEnabled is the global guest-mode switch (default: true --
	// set DisableGuestMode to turn it off).
	DisableGuestMode bool

	// LobbyStateTTL is how long a computed lobby state stays fresh
	// (default: 30s).
	LobbyStateTTL time.Duration

	// GuestContextTTL is how long a caller's guest context survives without
	// renewal (default: 30m).
	GuestContextTTL time.Duration

	// LobbyStateCacheSize and GuestContextCacheSize bound the in-memory
	// caches (defaults: 4096 and 16384).
	LobbyStateCacheSize   int
	GuestContextCacheSize int

	// RateLimitEnabled, GuestRequestsPerMinute, VerifyRequestsPerMinute and
	// MaxRequestBodySize tune the HTTP surface.
	RateLimitEnabled        bool
	GuestRequestsPerMinute  int
	VerifyRequestsPerMinute int
	MaxRequestBodySize      int64
	MetricsEnabled          bool

	// Logger is the structured logger (default: slog.Default()).
	Logger *slog.Logger
}

// GuestLobby is the wired engine with its HTTP surface and event consumer.
type GuestLobby struct {
	config       Config
	sessions     *repository.GuestSessionsRepository
	invites      *repository.GuestInvitesRepository
	states       *repository.LobbyStatesRepository
	bus          *events.Bus
	consumer     *events.Consumer
	reconciler   *lobby.LobbyStateReconciler
	engine       *lobby.SessionLifecycleEngine
	verifier     *lobby.GuestVerifier
	orchestrator *lobby.GuestContextOrchestrator
}

const (
	defaultMaxGuests       = 10
	defaultLobbyStateTTL   = 30 * time.Second
	defaultGuestContextTTL = 30 * time.Minute

	defaultLobbyStateCacheSize   = 4096
	defaultGuestContextCacheSize = 16384
)

// New creates a wired GuestLobby instance.
func New(cfg Config) (*GuestLobby, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("guestlobby: DB is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("guestlobby: JWTSecret must be at least 32 characters")
	}
	if cfg.Projects == nil || cfg.Participants == nil || cfg.Users == nil {
		return nil, fmt.Errorf("guestlobby: Projects, Participants and Users are required")
	}
	if cfg.MaxGuestsAllowedInProject == 0 {
		cfg.MaxGuestsAllowedInProject = defaultMaxGuests
	}
	if cfg.LobbyStateTTL == 0 {
		cfg.LobbyStateTTL = defaultLobbyStateTTL
	}
	if cfg.GuestContextTTL == 0 {
		cfg.GuestContextTTL = defaultGuestContextTTL
	}
	if cfg.LobbyStateCacheSize == 0 {
		cfg.LobbyStateCacheSize = defaultLobbyStateCacheSize
	}
	if cfg.GuestContextCacheSize == 0 {
		cfg.GuestContextCacheSize = defaultGuestContextCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	sessions := repository.NewGuestSessionsRepository(cfg.DB)
	invites := repository.NewGuestInvitesRepository(cfg.DB)
	states := repository.NewLobbyStatesRepository(cfg.DB)

	lobbyStates := cache.NewLobbyStates(cfg.LobbyStateCacheSize, cfg.LobbyStateTTL)
	guestContexts := cache.NewGuestContexts(cfg.GuestContextCacheSize, cfg.GuestContextTTL)

	bus := events.NewBus(cfg.Logger)

	reconciler := lobby.NewLobbyStateReconciler(
		cfg.Projects, cfg.Participants, sessions, states, lobbyStates, bus,
		cfg.MaxGuestsAllowedInProject, cfg.Logger,
	)
	engine := lobby.NewSessionLifecycleEngine(
		sessions, cfg.Projects, guestContexts, reconciler, bus,
		cfg.MaxGuestsAllowedInProject, cfg.Logger,
	)
	verifier := lobby.NewGuestVerifier(cfg.Projects, cfg.Users, invites, !cfg.DisableGuestMode, cfg.Logger)
	orchestrator := lobby.NewGuestContextOrchestrator(
		engine, reconciler, verifier, cfg.Projects, cfg.Users,
		sessions, guestContexts, cfg.Notifier, cfg.Logger,
	)

	// Session churn re-derives the lobby state off the hot path. The
	// handler is idempotent, so the consumer may retry it freely.
	ch := bus.Subscribe(lobby.EventGuestSessionCreated, lobby.EventGuestSessionDeleted)
	consumer := events.NewConsumer(ch, recalcHandler(reconciler), events.ConsumerConfig{Logger: cfg.Logger})

	return &GuestLobby{
		config:       cfg,
		sessions:     sessions,
		invites:      invites,
		states:       states,
		bus:          bus,
		consumer:     consumer,
		reconciler:   reconciler,
		engine:       engine,
		verifier:     verifier,
		orchestrator: orchestrator,
	}, nil
}

func recalcHandler(reconciler *lobby.LobbyStateReconciler) events.Handler {
	return func(ctx context.Context, event string, payload any) error {
		projectID, ok := projectIDOf(payload)
		if !ok {
			return nil
		}
		metrics.LobbyStateRecalculations.Inc()
		_, err := reconciler.Recalculate(ctx, projectID)
		return err
	}
}

func projectIDOf(payload any) (uuid.UUID, bool) {
	switch p := payload.(type) {
	case lobby.SessionEvent:
		return p.ProjectID, true
	case lobby.ProjectEvent:
		return p.ProjectID, true
	default:
		return uuid.Nil, false
	}
}

// Run starts the event consumer. It returns immediately; the consumer stops
// when ctx is cancelled.
func (g *GuestLobby) Run(ctx context.Context) {
	go g.consumer.Run(ctx)
}

// Router returns a chi router with all guest lobby routes.
//
// Routes:
//
//	POST   /v1/guest/verify                                   - pre-entry verification
//	POST   /v1/guest/context                                  - attach caller to a lobby (protected)
//	DELETE /v1/guest/context                                  - detach caller, end session (protected)
//	POST   /v1/guest/sessions/{id}/state                      - session state transition (protected)
//	DELETE /v1/guest/sessions/{id}                            - administrative delete (protected)
//	DELETE /v1/projects/{id}/guest-sessions                   - bulk end (protected)
//	GET    /v1/projects/{id}/lobby-state                      - lobby state (protected)
//	POST   /v1/projects/{id}/lobby-state/recalculate          - force recompute (protected)
func (g *GuestLobby) Router() http.Handler {
	return internalhttp.NewRouter(internalhttp.RouterConfig{
		Logger:                  g.config.Logger,
		Orchestrator:            g.orchestrator,
		Engine:                  g.engine,
		Reconciler:              g.reconciler,
		Verifier:                g.verifier,
		JWTSecret:               []byte(g.config.JWTSecret),
		RateLimitEnabled:        g.config.RateLimitEnabled,
		GuestRequestsPerMinute:  g.config.GuestRequestsPerMinute,
		VerifyRequestsPerMinute: g.config.VerifyRequestsPerMinute,
		MaxRequestBodySize:      g.config.MaxRequestBodySize,
		MetricsEnabled:          g.config.MetricsEnabled,
	})
}

// Engine exposes the session lifecycle engine for embedding applications.
func (g *GuestLobby) Engine() *lobby.SessionLifecycleEngine { return g.engine }

// Reconciler exposes the lobby state reconciler for embedding applications.
func (g *GuestLobby) Reconciler() *lobby.LobbyStateReconciler { return g.reconciler }

// Orchestrator exposes the guest context orchestrator for embedding applications.
func (g *GuestLobby) Orchestrator() *lobby.GuestContextOrchestrator { return g.orchestrator }
