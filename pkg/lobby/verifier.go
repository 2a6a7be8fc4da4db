package lobby

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/pkg/domain"
)

// VerifyResult is the outcome of the guest verification decision table.
type VerifyResult string

const (
	VerifySuccess VerifyResult = "success"
	// VerifySuccessNoUser admits a guest without a principal account yet,
	// on the strength of a matching, non-expired invite.
	VerifySuccessNoUser           VerifyResult = "success_no_user"
	VerifyInvalidCode             VerifyResult = "invalid_code"
	VerifyInvalidNoInvite         VerifyResult = "invalid_no_invite"
	VerifyUserLocked              VerifyResult = "user_is_locked"
	VerifyEmailVerificationNeeded VerifyResult = "email_verification_needed"
	VerifyFailed                  VerifyResult = "failed"
)

// VerifyGuestRequest identifies who wants into which lobby.
type VerifyGuestRequest struct {
	Username          string
	ProjectAccessCode string
	ProjectID         uuid.UUID
}

// VerifyOutcome is the verification result with a human-readable message.
type VerifyOutcome struct {
	Result  VerifyResult
	Message string
}

// GuestVerifier decides whether a user may enter a project's lobby.
// VerifyGuest is a pure decision function with no side effects; callers act
// on the result.
type GuestVerifier struct {
	projects         ProjectDirectory
	users            UserDirectory
	invites          GuestInviteStore
	guestModeEnabled bool
	logger           *slog.Logger
}

// NewGuestVerifier creates the verifier. guestModeEnabled is the global
// guest-mode switch; the per-project flag is checked on the project record.
func NewGuestVerifier(projects ProjectDirectory, users UserDirectory, invites GuestInviteStore, guestModeEnabled bool, logger *slog.Logger) *GuestVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuestVerifier{
		projects:         projects,
		users:            users,
		invites:          invites,
		guestModeEnabled: guestModeEnabled,
		logger:           logger,
	}
}

// VerifyGuest evaluates the admission decision table; the first matching
// rule wins. If project is nil it is resolved by id when the request has
// one, else by access code. Same-tenant callers bypass the access-code
// check.
func (v *GuestVerifier) VerifyGuest(ctx context.Context, req VerifyGuestRequest, project *domain.Project, callerTenantID uuid.UUID) VerifyOutcome {
	if project == nil {
		var err error
		if req.ProjectID != uuid.Nil {
			project, err = v.projects.GetProjectByID(ctx, req.ProjectID)
		} else {
			project, err = v.projects.GetProjectByAccessCode(ctx, req.ProjectAccessCode)
		}
		if err != nil || project == nil {
			return VerifyOutcome{Result: VerifyInvalidCode, Message: "project could not be resolved"}
		}
	}

	if req.ProjectID != uuid.Nil && req.ProjectID != project.ID {
		return VerifyOutcome{Result: VerifyInvalidCode, Message: "project id does not match"}
	}
	if req.ProjectAccessCode != "" && req.ProjectAccessCode != project.GuestAccessCode &&
		callerTenantID != project.TenantID {
		return VerifyOutcome{Result: VerifyInvalidCode, Message: "access code does not match"}
	}
	if project.TenantID == uuid.Nil {
		return VerifyOutcome{Result: VerifyInvalidCode, Message: "project is not provisioned"}
	}
	if !v.guestModeEnabled || !project.GuestModeEnabled {
		return VerifyOutcome{Result: VerifyFailed, Message: "guest mode is disabled"}
	}

	user, err := v.users.GetUserByUsernameOrEmail(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			if v.hasValidInvite(ctx, project, req.Username) {
				return VerifyOutcome{Result: VerifySuccessNoUser, Message: "invited guest without account"}
			}
			return VerifyOutcome{Result: VerifyInvalidNoInvite, Message: "no account and no invite on record"}
		}
		v.logger.Warn("guest verification: user lookup failed", "username", req.Username, "error", err)
		return VerifyOutcome{Result: VerifyFailed, Message: "user lookup failed"}
	}

	if user.Locked {
		return VerifyOutcome{Result: VerifyUserLocked, Message: "account is locked"}
	}
	if !user.EmailVerified {
		return VerifyOutcome{Result: VerifyEmailVerificationNeeded, Message: "email address is not verified"}
	}
	return VerifyOutcome{Result: VerifySuccess}
}

func (v *GuestVerifier) hasValidInvite(ctx context.Context, project *domain.Project, email string) bool {
	invites, err := v.invites.GetByProjectAndEmail(ctx, project.ID, email)
	if err != nil {
		if !errors.Is(err, domain.ErrGuestInviteNotFound) {
			v.logger.Warn("guest verification: invite lookup failed",
				"project_id", project.ID, "error", err)
		}
		return false
	}
	for _, invite := range invites {
		if invite.Matches(email, project.GuestAccessCode) {
			return true
		}
	}
	return false
}
