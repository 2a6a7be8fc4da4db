// Package directory provides HTTP clients for the collaborator services the
// engine depends on: the project directory, the participant registry and the
// user directory. The clients speak plain JSON over REST; anything richer is
// the collaborator's concern.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/collabware/guest-lobby/pkg/domain"
)

const defaultTimeout = 10 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// ProjectDirectoryClient implements lobby.ProjectDirectory over HTTP.
type ProjectDirectoryClient struct {
	baseURL string
	client  *http.Client
}

// NewProjectDirectoryClient creates a client for the project directory service.
func NewProjectDirectoryClient(baseURL string) *ProjectDirectoryClient {
	return &ProjectDirectoryClient{baseURL: baseURL, client: newHTTPClient()}
}

type projectPayload struct {
	ID               uuid.UUID `json:"id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	OwnerID          uuid.UUID `json:"owner_id"`
	Name             string    `json:"name"`
	GuestAccessCode  string    `json:"guest_access_code"`
	GuestModeEnabled bool      `json:"guest_mode_enabled"`
}

func (p *projectPayload) toDomain() *domain.Project {
	return &domain.Project{
		ID:               p.ID,
		TenantID:         p.TenantID,
		OwnerID:          p.OwnerID,
		Name:             p.Name,
		GuestAccessCode:  p.GuestAccessCode,
		GuestModeEnabled: p.GuestModeEnabled,
	}
}

func (c *ProjectDirectoryClient) GetProjectByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var payload projectPayload
	err := getJSON(ctx, c.client, fmt.Sprintf("%s/v1/projects/%s", c.baseURL, id), &payload, domain.ErrProjectNotFound)
	if err != nil {
		return nil, err
	}
	return payload.toDomain(), nil
}

func (c *ProjectDirectoryClient) GetProjectByAccessCode(ctx context.Context, code string) (*domain.Project, error) {
	var payload projectPayload
	endpoint := fmt.Sprintf("%s/v1/projects?access_code=%s", c.baseURL, url.QueryEscape(code))
	err := getJSON(ctx, c.client, endpoint, &payload, domain.ErrProjectNotFound)
	if err != nil {
		return nil, err
	}
	return payload.toDomain(), nil
}

func (c *ProjectDirectoryClient) GetFullMemberUserIDs(ctx context.Context, projectID, tenantID uuid.UUID) ([]uuid.UUID, error) {
	var payload struct {
		UserIDs []uuid.UUID `json:"user_ids"`
	}
	endpoint := fmt.Sprintf("%s/v1/projects/%s/members?tenant_id=%s", c.baseURL, projectID, tenantID)
	if err := getJSON(ctx, c.client, endpoint, &payload, domain.ErrProjectNotFound); err != nil {
		return nil, err
	}
	return payload.UserIDs, nil
}

func (c *ProjectDirectoryClient) GrantMembership(ctx context.Context, userID, projectID uuid.UUID) error {
	body, _ := json.Marshal(map[string]string{"user_id": userID.String()})
	endpoint := fmt.Sprintf("%s/v1/projects/%s/members", c.baseURL, projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("grant membership: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("grant membership: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ParticipantRegistryClient implements lobby.ParticipantRegistry over HTTP.
type ParticipantRegistryClient struct {
	baseURL string
	client  *http.Client
}

// NewParticipantRegistryClient creates a client for the participant registry service.
func NewParticipantRegistryClient(baseURL string) *ParticipantRegistryClient {
	return &ParticipantRegistryClient{baseURL: baseURL, client: newHTTPClient()}
}

func (c *ParticipantRegistryClient) GetParticipantsByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Participant, error) {
	var payload struct {
		Participants []struct {
			UserID uuid.UUID `json:"user_id"`
		} `json:"participants"`
	}
	endpoint := fmt.Sprintf("%s/v1/projects/%s/participants", c.baseURL, projectID)
	if err := getJSON(ctx, c.client, endpoint, &payload, domain.ErrProjectNotFound); err != nil {
		return nil, err
	}
	participants := make([]domain.Participant, 0, len(payload.Participants))
	for _, p := range payload.Participants {
		participants = append(participants, domain.Participant{UserID: p.UserID})
	}
	return participants, nil
}

// UserDirectoryClient implements lobby.UserDirectory over HTTP.
type UserDirectoryClient struct {
	baseURL string
	client  *http.Client
}

// NewUserDirectoryClient creates a client for the user directory service.
func NewUserDirectoryClient(baseURL string) *UserDirectoryClient {
	return &UserDirectoryClient{baseURL: baseURL, client: newHTTPClient()}
}

type userPayload struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Locked        bool      `json:"locked"`
	EmailVerified bool      `json:"email_verified"`
}

func (p *userPayload) toDomain() *domain.User {
	return &domain.User{
		ID:            p.ID,
		Email:         p.Email,
		Name:          p.Name,
		Locked:        p.Locked,
		EmailVerified: p.EmailVerified,
	}
}

func (c *UserDirectoryClient) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var payload userPayload
	if err := getJSON(ctx, c.client, fmt.Sprintf("%s/v1/users/%s", c.baseURL, id), &payload, domain.ErrUserNotFound); err != nil {
		return nil, err
	}
	return payload.toDomain(), nil
}

func (c *UserDirectoryClient) GetUserByUsernameOrEmail(ctx context.Context, name string) (*domain.User, error) {
	var payload userPayload
	endpoint := fmt.Sprintf("%s/v1/users?name=%s", c.baseURL, url.QueryEscape(name))
	if err := getJSON(ctx, c.client, endpoint, &payload, domain.ErrUserNotFound); err != nil {
		return nil, err
	}
	return payload.toDomain(), nil
}

// getJSON fetches and decodes a JSON document, mapping 404 to notFound.
func getJSON(ctx context.Context, client *http.Client, endpoint string, out any, notFound error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return notFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %d", endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}
