// Package lobbystate exposes the derived lobby state of a project.
package lobbystate

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/internal/httputil"
	"github.com/collabware/guest-lobby/internal/metrics"
	"github.com/collabware/guest-lobby/pkg/domain"
	"github.com/collabware/guest-lobby/pkg/lobby"
)

// Handler handles lobby state endpoints.
type Handler struct {
	logger     *slog.Logger
	reconciler *lobby.LobbyStateReconciler
}

// NewHandler creates a new lobby state handler.
func NewHandler(logger *slog.Logger, reconciler *lobby.LobbyStateReconciler) *Handler {
	return &Handler{logger: logger, reconciler: reconciler}
}

// StateResponse is the wire form of a project lobby state.
type StateResponse struct {
	ProjectID string `json:"project_id"`
	State     string `json:"state"`
	UpdatedAt string `json:"updated_at"`
}

// Get returns the project's lobby state, computing it on a cache miss.
// GET /v1/projects/{projectID}/lobby-state
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "project id must be a valid uuid")
		return
	}
	state, err := h.reconciler.GetProjectLobbyState(r.Context(), projectID)
	if err != nil {
		h.respondError(w, projectID, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toStateResponse(state))
}

// Recalculate forces a full recomputation of the project's lobby state.
// POST /v1/projects/{projectID}/lobby-state/recalculate
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "project id must be a valid uuid")
		return
	}
	metrics.LobbyStateRecalculations.Inc()
	state, err := h.reconciler.Recalculate(r.Context(), projectID)
	if err != nil {
		h.respondError(w, projectID, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toStateResponse(state))
}

func (h *Handler) respondError(w http.ResponseWriter, projectID uuid.UUID, err error) {
	if errors.Is(err, domain.ErrProjectNotFound) {
		httputil.Error(w, http.StatusNotFound, "project not found")
		return
	}
	h.logger.Error("lobby state lookup failed", "project_id", projectID, "error", err)
	httputil.Error(w, http.StatusInternalServerError, "internal error")
}

func toStateResponse(s *domain.ProjectLobbyState) StateResponse {
	return StateResponse{
		ProjectID: s.ProjectID.String(),
		State:     string(s.State),
		UpdatedAt: s.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
