// Package admission exposes the session state machine: transitions, bulk
// ends and administrative deletes.
package admission

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/internal/http/middleware"
	"github.com/collabware/guest-lobby/internal/httputil"
	"github.com/collabware/guest-lobby/internal/metrics"
	"github.com/collabware/guest-lobby/pkg/domain"
	"github.com/collabware/guest-lobby/pkg/lobby"
)

// Handler handles admission endpoints.
type Handler struct {
	logger *slog.Logger
	engine *lobby.SessionLifecycleEngine
}

// NewHandler creates a new admission handler.
func NewHandler(logger *slog.Logger, engine *lobby.SessionLifecycleEngine) *Handler {
	return &Handler{logger: logger, engine: engine}
}

// TransitionRequest moves a session to a target state.
type TransitionRequest struct {
	TargetState string `json:"target_state"`
}

// TransitionResponse carries the result code and the session as decided.
type TransitionResponse struct {
	Result  string           `json:"result"`
	Session *SessionResponse `json:"session,omitempty"`
}

// SessionResponse is the wire form of a guest session.
type SessionResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
}

var validTargets = map[domain.GuestSessionState]bool{
	domain.SessionStateInLobby:   true,
	domain.SessionStateInProject: true,
	domain.SessionStatePromoted:  true,
	domain.SessionStateEnded:     true,
}

// Transition moves a guest session to a target state.
// POST /v1/guest/sessions/{sessionID}/state
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "session id must be a valid uuid")
		return
	}
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	target := domain.GuestSessionState(req.TargetState)
	if !validTargets[target] {
		httputil.Error(w, http.StatusBadRequest, "target_state is not a valid session state")
		return
	}
	principalID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	out := h.engine.UpdateGuestSessionState(r.Context(), lobby.TransitionRequest{
		GuestSessionID: sessionID,
		TargetState:    target,
	}, principalID)

	metrics.AdmissionOutcomes.WithLabelValues(string(out.Result)).Inc()
	resp := TransitionResponse{Result: string(out.Result)}
	if out.Session != nil {
		resp.Session = toSessionResponse(out.Session)
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// EndForProject ends a project's guest sessions. With only_in_project=true
// just the admitted sessions are kicked; otherwise every live session ends.
// DELETE /v1/projects/{projectID}/guest-sessions
func (h *Handler) EndForProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "project id must be a valid uuid")
		return
	}
	principalID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "missing authorization")
		return
	}
	onlyInProject, _ := strconv.ParseBool(r.URL.Query().Get("only_in_project"))

	if err := h.engine.EndGuestSessionsForProject(r.Context(), projectID, principalID, onlyInProject); err != nil {
		h.logger.Error("end guest sessions for project failed", "project_id", projectID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	metrics.GuestSessionsEnded.Inc()
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Delete hard-deletes a guest session. Already-absent sessions are fine.
// DELETE /v1/guest/sessions/{sessionID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "session id must be a valid uuid")
		return
	}
	if err := h.engine.DeleteGuestSession(r.Context(), sessionID); err != nil {
		h.logger.Error("delete guest session failed", "guest_session_id", sessionID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toSessionResponse(s *domain.GuestSession) *SessionResponse {
	return &SessionResponse{
		ID:        s.ID.String(),
		UserID:    s.UserID.String(),
		ProjectID: s.ProjectID.String(),
		State:     string(s.State),
		CreatedAt: s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
