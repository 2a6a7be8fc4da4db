// Package guest exposes the guest entry points: attaching a caller to a
// project lobby, clearing the attachment, and pre-entry verification.
package guest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/internal/http/middleware"
	"github.com/collabware/guest-lobby/internal/httputil"
	"github.com/collabware/guest-lobby/internal/metrics"
	"github.com/collabware/guest-lobby/pkg/domain"
	"github.com/collabware/guest-lobby/pkg/lobby"
)

// Handler handles guest context and verification endpoints.
type Handler struct {
	logger       *slog.Logger
	orchestrator *lobby.GuestContextOrchestrator
	verifier     *lobby.GuestVerifier
}

// NewHandler creates a new guest handler.
func NewHandler(logger *slog.Logger, orchestrator *lobby.GuestContextOrchestrator, verifier *lobby.GuestVerifier) *Handler {
	return &Handler{logger: logger, orchestrator: orchestrator, verifier: verifier}
}

// SetContextRequest attaches the caller to a project lobby.
type SetContextRequest struct {
	ProjectID  string `json:"project_id"`
	AccessCode string `json:"access_code,omitempty"`
}

// ContextResponse is the caller's current project state.
type ContextResponse struct {
	ProjectID    string `json:"project_id,omitempty"`
	ProjectName  string `json:"project_name,omitempty"`
	LobbyState   string `json:"lobby_state,omitempty"`
	SessionID    string `json:"guest_session_id,omitempty"`
	SessionState string `json:"guest_session_state,omitempty"`
	HasAccess    bool   `json:"has_access"`
}

// SetContext attaches the caller to a project.
// POST /v1/guest/context
func (h *Handler) SetContext(w http.ResponseWriter, r *http.Request) {
	var req SetContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "project_id must be a valid uuid")
		return
	}
	h.setContext(w, r, projectID, req.AccessCode)
}

// ClearContext detaches the caller from its current project, ending the
// guest session it holds.
// DELETE /v1/guest/context
func (h *Handler) ClearContext(w http.ResponseWriter, r *http.Request) {
	h.setContext(w, r, uuid.Nil, "")
}

func (h *Handler) setContext(w http.ResponseWriter, r *http.Request, projectID uuid.UUID, accessCode string) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "missing authorization")
		return
	}
	callerSessionID, ok := middleware.CallerSessionID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "missing caller session")
		return
	}

	state, err := h.orchestrator.SetProjectGuestContext(
		r.Context(), callerSessionID, projectID, accessCode,
		userID, middleware.TenantID(r.Context()),
	)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toContextResponse(state))
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrGuestVerificationFailed):
		httputil.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrProjectNotFound):
		httputil.Error(w, http.StatusNotFound, "project not found")
	case errors.Is(err, domain.ErrProjectUnavailable), errors.Is(err, domain.ErrMembershipUnavailable):
		httputil.Error(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("set guest context failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func toContextResponse(state *lobby.CurrentProjectState) ContextResponse {
	resp := ContextResponse{HasAccess: state.HasAccess}
	if state.Project != nil {
		resp.ProjectID = state.Project.ID.String()
		resp.ProjectName = state.Project.Name
	}
	if state.LobbyState != nil {
		resp.LobbyState = string(state.LobbyState.State)
	}
	if state.GuestSession != nil {
		resp.SessionID = state.GuestSession.ID.String()
		resp.SessionState = string(state.GuestSession.State)
	}
	return resp
}

// VerifyRequest asks whether a user may enter a lobby.
type VerifyRequest struct {
	Username          string `json:"username"`
	ProjectAccessCode string `json:"project_access_code,omitempty"`
	ProjectID         string `json:"project_id,omitempty"`
}

// VerifyResponse carries the verification decision.
type VerifyResponse struct {
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// Verify runs the guest verification decision table. Unauthenticated:
// callers use it before they have an account.
// POST /v1/guest/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		httputil.Error(w, http.StatusBadRequest, "username is required")
		return
	}
	projectID := uuid.Nil
	if req.ProjectID != "" {
		var err error
		projectID, err = uuid.Parse(req.ProjectID)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "project_id must be a valid uuid")
			return
		}
	}

	outcome := h.verifier.VerifyGuest(r.Context(), lobby.VerifyGuestRequest{
		Username:          req.Username,
		ProjectAccessCode: req.ProjectAccessCode,
		ProjectID:         projectID,
	}, nil, middleware.TenantID(r.Context()))

	metrics.VerificationOutcomes.WithLabelValues(string(outcome.Result)).Inc()
	httputil.JSON(w, http.StatusOK, VerifyResponse{
		Result:  string(outcome.Result),
		Message: outcome.Message,
	})
}
