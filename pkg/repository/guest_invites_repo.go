package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/pkg/domain"
)

// GuestInvitesRepository handles guest invite persistence.
type GuestInvitesRepository struct {
	db *sql.DB
}

// NewGuestInvitesRepository creates a new guest invites repository.
func NewGuestInvitesRepository(db *sql.DB) *GuestInvitesRepository {
	return &GuestInvitesRepository{db: db}
}

// Create inserts a new guest invite.
func (r *GuestInvitesRepository) Create(ctx context.Context, invite *domain.GuestInvite) error {
	query := `
		INSERT INTO guest_invites (id, project_id, invited_by_user_id, email, project_access_code, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		invite.ID, invite.ProjectID, invite.InvitedByUserID,
		invite.Email, invite.ProjectAccessCode, invite.CreatedAt, invite.ExpiresAt,
	)
	return err
}

// GetByProjectAndEmail retrieves a project's invites for an email address,
// most recent first. Expiry filtering is left to the caller; invites are
// read-mostly and the verifier checks expiry alongside the access code.
func (r *GuestInvitesRepository) GetByProjectAndEmail(ctx context.Context, projectID uuid.UUID, email string) ([]*domain.GuestInvite, error) {
	query := `
		SELECT id, project_id, invited_by_user_id, email, project_access_code, created_at, expires_at
		FROM guest_invites
		WHERE project_id = $1 AND lower(email) = lower($2)
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, projectID, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []*domain.GuestInvite
	for rows.Next() {
		invite := &domain.GuestInvite{}
		err := rows.Scan(
			&invite.ID, &invite.ProjectID, &invite.InvitedByUserID,
			&invite.Email, &invite.ProjectAccessCode, &invite.CreatedAt, &invite.ExpiresAt,
		)
		if err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}
