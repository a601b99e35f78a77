package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aie-platform/innovation-backend/internal/apperr"
	"github.com/aie-platform/innovation-backend/internal/policy"
	"github.com/aie-platform/innovation-backend/internal/users/domain"
)

// Repo provides persistence for user accounts.
type Repo struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const userCols = `id, username, email, password_hash, role, is_active, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new account. A unique violation on username or email
// surfaces as apperr.ErrConflict.
func (r *Repo) Create(ctx context.Context, u *domain.User) (int64, error) {
	const q = `
INSERT INTO users (username, email, password_hash, role, is_active)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;
`
	var id int64
	err := r.db.QueryRow(ctx, q, u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: username or email already in use", apperr.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1;`
	return scanUser(r.db.QueryRow(ctx, q, id))
}

// GetByLogin finds an active account by email or username.
func (r *Repo) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	const q = `
SELECT ` + userCols + `
FROM users
WHERE (email = $1 OR username = $1) AND is_active;
`
	return scanUser(r.db.QueryRow(ctx, q, login))
}

// ExistsByUsernameOrEmail reports whether any account uses the username or email.
func (r *Repo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2);`
	var exists bool
	if err := r.db.QueryRow(ctx, q, username, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByRole returns accounts with the given role ordered by username.
func (r *Repo) ListByRole(ctx context.Context, role policy.Role) ([]domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE role = $1 ORDER BY username;`
	rows, err := r.db.Query(ctx, q, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.User, 0, 16)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetActive updates the active flag. Returns false if no row matched.
func (r *Repo) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	const q = `UPDATE users SET is_active = $2 WHERE id = $1;`
	tag, err := r.db.Exec(ctx, q, id, active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes an account. Returns false if no row matched.
func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM users WHERE id = $1;`
	tag, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ActiveExpertExists reports whether id names an active user with role Expert.
func (r *Repo) ActiveExpertExists(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND role = $2 AND is_active);`
	var exists bool
	if err := r.db.QueryRow(ctx, q, id, policy.RoleExpert).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CountUsers returns the total number of accounts. Used by the startup seeder.
func (r *Repo) CountUsers(ctx context.Context) (int64, error) {
	const q = `SELECT count(*) FROM users;`
	var n int64
	if err := r.db.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
