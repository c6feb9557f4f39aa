package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgkudos/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, username, password_hash, role, organization_id, created_at, updated_at
		FROM users WHERE id = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.Password, &u.Role,
		&u.OrganizationID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername returns a user by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	const q = `SELECT id, username, password_hash, role, organization_id, created_at, updated_at
		FROM users WHERE username = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, username).Scan(&u.ID, &u.Username, &u.Password, &u.Role,
		&u.OrganizationID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user. orgID may be nil for users without an organization.
func (r *Repository) Create(ctx context.Context, username, passwordHash string, role models.Role, orgID *uuid.UUID) (*models.User, error) {
	const q = `INSERT INTO users (id, username, password_hash, role, organization_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, username, password_hash, role, organization_id, created_at, updated_at`
	var u models.User
	err := r.pool.QueryRow(ctx, q, username, passwordHash, string(role), orgID).
		Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListReceivers returns the users the caller may send kudos to: members of
// the same organization, excluding the caller.
func (r *Repository) ListReceivers(ctx context.Context, orgID, excludeUserID uuid.UUID) ([]models.UserPublic, error) {
	const q = `SELECT id, username, role, organization_id, created_at
		FROM users WHERE organization_id = $1 AND id <> $2 ORDER BY username`
	rows, err := r.pool.Query(ctx, q, orgID, excludeUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		var role string
		if err := rows.Scan(&u.ID, &u.Username, &role, &u.OrganizationID, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = models.Role(role)
		list = append(list, u)
	}
	return list, rows.Err()
}

// GetProfile returns the profile projection base (id, username, organization
// name, empty when unassigned). KudosLeft is filled in by the caller.
func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	const q = `SELECT u.id, u.username, COALESCE(o.name, '')
		FROM users u
		LEFT JOIN organizations o ON o.id = u.organization_id
		WHERE u.id = $1`
	var p models.Profile
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Username, &p.Organization)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a user. Their sent and received kudos go with them via the
// schema's ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}
