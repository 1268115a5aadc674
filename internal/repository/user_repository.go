package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/onvent/event-booking/internal/domain"
)

// CreateUser inserts a new account and returns its ID. A duplicate email is
// reported as domain.ErrEmailTaken.
func (r *Repository) CreateUser(ctx context.Context, name, email, passwordHash string, role domain.Role) (uint64, error) {
	const q = `INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)`
	res, err := r.q(ctx).ExecContext(ctx, q, name, email, passwordHash, string(role))
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, domain.ErrEmailTaken
		}
		return 0, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify(err)
	}
	return uint64(id), nil
}

// GetUserByEmail returns the account matching the (lower-cased) email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	const q = `SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = ?`
	return r.scanUser(r.q(ctx).QueryRowContext(ctx, q, email))
}

// GetUser returns the account with the given ID.
func (r *Repository) GetUser(ctx context.Context, id uint64) (domain.User, error) {
	const q = `SELECT id, name, email, password_hash, role, created_at FROM users WHERE id = ?`
	return r.scanUser(r.q(ctx).QueryRowContext(ctx, q, id))
}

func (r *Repository) scanUser(row *sql.Row) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, classify(err)
	}
	u.Role = domain.Role(role)
	return u, nil
}
