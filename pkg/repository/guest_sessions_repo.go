package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/pkg/domain"
)

// GuestSessionsRepository handles guest session persistence.
type GuestSessionsRepository struct {
	db *sql.DB
}

// NewGuestSessionsRepository creates a new guest sessions repository.
func NewGuestSessionsRepository(db *sql.DB) *GuestSessionsRepository {
	return &GuestSessionsRepository{db: db}
}

const guestSessionColumns = `
	id, user_id, project_id, project_tenant_id, project_access_code, state,
	created_at, access_granted_by, access_granted_at, access_revoked_by,
	access_revoked_at, emailed_host_at
`

// Create inserts a new guest session.
func (r *GuestSessionsRepository) Create(ctx context.Context, session *domain.GuestSession) error {
	query := `
		INSERT INTO guest_sessions (` + guestSessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.ProjectID, session.ProjectTenantID,
		session.ProjectAccessCode, session.State, session.CreatedAt,
		session.AccessGrantedBy, session.AccessGrantedAt,
		session.AccessRevokedBy, session.AccessRevokedAt, session.EmailedHostAt,
	)
	return err
}

// GetByID retrieves a guest session by id.
func (r *GuestSessionsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.GuestSession, error) {
	query := `
		SELECT ` + guestSessionColumns + `
		FROM guest_sessions
		WHERE id = $1
	`
	session := &domain.GuestSession{}
	err := scanGuestSession(r.db.QueryRowContext(ctx, query, id), session)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGuestSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Update persists state and audit fields of an existing session.
func (r *GuestSessionsRepository) Update(ctx context.Context, session *domain.GuestSession) error {
	query := `
		UPDATE guest_sessions
		SET state = $2, access_granted_by = $3, access_granted_at = $4,
		    access_revoked_by = $5, access_revoked_at = $6, emailed_host_at = $7
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		session.ID, session.State,
		session.AccessGrantedBy, session.AccessGrantedAt,
		session.AccessRevokedBy, session.AccessRevokedAt, session.EmailedHostAt,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrGuestSessionNotFound
	}
	return nil
}

// Delete removes a session permanently.
func (r *GuestSessionsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM guest_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrGuestSessionNotFound
	}
	return nil
}

// GetByProjectID retrieves all guest sessions for a project.
func (r *GuestSessionsRepository) GetByProjectID(ctx context.Context, projectID uuid.UUID) ([]*domain.GuestSession, error) {
	query := `
		SELECT ` + guestSessionColumns + `
		FROM guest_sessions
		WHERE project_id = $1
		ORDER BY created_at DESC
	`
	return r.query(ctx, query, projectID)
}

// GetByUserAndProject retrieves all sessions of a user in a project.
func (r *GuestSessionsRepository) GetByUserAndProject(ctx context.Context, userID, projectID uuid.UUID) ([]*domain.GuestSession, error) {
	query := `
		SELECT ` + guestSessionColumns + `
		FROM guest_sessions
		WHERE user_id = $1 AND project_id = $2
		ORDER BY created_at DESC
	`
	return r.query(ctx, query, userID, projectID)
}

func (r *GuestSessionsRepository) query(ctx context.Context, query string, args ...any) ([]*domain.GuestSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.GuestSession
	for rows.Next() {
		session := &domain.GuestSession{}
		if err := scanGuestSession(rows, session); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuestSession(row rowScanner, session *domain.GuestSession) error {
	return row.Scan(
		&session.ID, &session.UserID, &session.ProjectID, &session.ProjectTenantID,
		&session.ProjectAccessCode, &session.State, &session.CreatedAt,
		&session.AccessGrantedBy, &session.AccessGrantedAt,
		&session.AccessRevokedBy, &session.AccessRevokedAt, &session.EmailedHostAt,
	)
}
