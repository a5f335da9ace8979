package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists portal users. Hospital and supplier accounts live in
// separate tables mirroring the two portals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func tableFor(scope Scope) string {
	if scope == ScopeSupplier {
		return "supplier_users"
	}
	return "hospital_users"
}

func orgColumnFor(scope Scope) string {
	if scope == ScopeSupplier {
		return "supplier_id"
	}
	return "hospital_id"
}

// CreateUser inserts a portal user.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	query := fmt.Sprintf(`INSERT INTO %s
		(%s, username, password, email, role, first_name, last_name, is_active, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id`, tableFor(u.Scope), orgColumnFor(u.Scope))
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, query,
		u.OrgID, u.Username, u.PasswordHash, u.Email, u.Role,
		u.FirstName, u.LastName, true, now,
	).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateUsername
		}
		return User{}, err
	}
	u.IsActive = true
	u.CreatedAt = now
	return u, nil
}

// FindByUsername loads a portal user by username.
func (r *Repository) FindByUsername(ctx context.Context, scope Scope, username string) (User, error) {
	query := fmt.Sprintf(`SELECT id, COALESCE(%s, 0), username, password, email, role,
		first_name, last_name, is_active, created_at
	FROM %s WHERE username = $1`, orgColumnFor(scope), tableFor(scope))
	var u User
	err := r.pool.QueryRow(ctx, query, username).Scan(&u.ID, &u.OrgID, &u.Username,
		&u.PasswordHash, &u.Email, &u.Role, &u.FirstName, &u.LastName, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	u.Scope = scope
	return u, nil
}
