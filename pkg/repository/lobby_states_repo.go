package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/pkg/domain"
)

// LobbyStatesRepository handles project lobby state persistence.
type LobbyStatesRepository struct {
	db *sql.DB
}

// NewLobbyStatesRepository creates a new lobby states repository.
func NewLobbyStatesRepository(db *sql.DB) *LobbyStatesRepository {
	return &LobbyStatesRepository{db: db}
}

// Get retrieves the lobby state record of a project.
func (r *LobbyStatesRepository) Get(ctx context.Context, projectID uuid.UUID) (*domain.ProjectLobbyState, error) {
	query := `
		SELECT project_id, state, updated_at
		FROM project_lobby_states
		WHERE project_id = $1
	`
	state := &domain.ProjectLobbyState{}
	err := r.db.QueryRowContext(ctx, query, projectID).Scan(
		&state.ProjectID, &state.State, &state.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLobbyStateNotFound
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Create inserts the lobby state record for a project.
func (r *LobbyStatesRepository) Create(ctx context.Context, state *domain.ProjectLobbyState) error {
	query := `
		INSERT INTO project_lobby_states (project_id, state, updated_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.ExecContext(ctx, query, state.ProjectID, state.State, state.UpdatedAt)
	return err
}

// Update overwrites the lobby state record of a project.
func (r *LobbyStatesRepository) Update(ctx context.Context, state *domain.ProjectLobbyState) error {
	query := `
		UPDATE project_lobby_states
		SET state = $2, updated_at = $3
		WHERE project_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, state.ProjectID, state.State, state.UpdatedAt)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrLobbyStateNotFound
	}
	return nil
}

// Delete removes the lobby state record of a project.
func (r *LobbyStatesRepository) Delete(ctx context.Context, projectID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM project_lobby_states WHERE project_id = $1`, projectID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrLobbyStateNotFound
	}
	return nil
}
