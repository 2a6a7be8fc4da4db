package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/collabware/guest-lobby/internal/http/features/admission"
	"github.com/collabware/guest-lobby/internal/http/features/guest"
	"github.com/collabware/guest-lobby/internal/http/features/lobbystate"
	"github.com/collabware/guest-lobby/internal/http/middleware"
	"github.com/collabware/guest-lobby/internal/httputil"
	"github.com/collabware/guest-lobby/pkg/lobby"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger       *slog.Logger
	Orchestrator *lobby.GuestContextOrchestrator
	Engine       *lobby.SessionLifecycleEngine
	Reconciler   *lobby.LobbyStateReconciler
	Verifier     *lobby.GuestVerifier

	JWTSecret []byte

	RateLimitEnabled        bool
	GuestRequestsPerMinute  int
	VerifyRequestsPerMinute int
	MaxRequestBodySize      int64
	MetricsEnabled          bool
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	guestLimit := middleware.NoRateLimit()
	verifyLimit := middleware.NoRateLimit()
	if cfg.RateLimitEnabled {
		guestLimit = middleware.RateLimit(middleware.RateLimitConfig{
			Requests: cfg.GuestRequestsPerMinute,
			Window:   time.Minute,
			Logger:   cfg.Logger,
		})
		verifyLimit = middleware.RateLimit(middleware.RateLimitConfig{
			Requests: cfg.VerifyRequestsPerMinute,
			Window:   time.Minute,
			Logger:   cfg.Logger,
		})
	}

	guestHandler := guest.NewHandler(cfg.Logger, cfg.Orchestrator, cfg.Verifier)
	admissionHandler := admission.NewHandler(cfg.Logger, cfg.Engine)
	lobbyStateHandler := lobbystate.NewHandler(cfg.Logger, cfg.Reconciler)

	r.Route("/v1", func(r chi.Router) {
		// Pre-entry verification has no principal yet.
		r.With(verifyLimit).Post("/guest/verify", guestHandler.Verify)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			r.With(guestLimit).Post("/guest/context", guestHandler.SetContext)
			r.Delete("/guest/context", guestHandler.ClearContext)

			r.Post("/guest/sessions/{sessionID}/state", admissionHandler.Transition)
			r.Delete("/guest/sessions/{sessionID}", admissionHandler.Delete)
			r.Delete("/projects/{projectID}/guest-sessions", admissionHandler.EndForProject)

			r.Get("/projects/{projectID}/lobby-state", lobbyStateHandler.Get)
			r.Post("/projects/{projectID}/lobby-state/recalculate", lobbyStateHandler.Recalculate)
		})
	})

	return r
}
