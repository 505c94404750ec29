package repository

import (
	"context"
	"database/sql"
	"strings"
)

// UserRepo answers identity lookups.  Accounts are owned by another
// system; this repository only checks existence and creates demo users.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// UserExists reports whether a user with the given id exists.
func (r *UserRepo) UserExists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.DB, "SELECT 1 FROM users WHERE id=? LIMIT 1", id)
}

// EnsureUser returns the id of the user with the normalized email,
// creating the row when missing.
func (r *UserRepo) EnsureUser(ctx context.Context, email string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return ensure(ctx, r.DB,
		"SELECT id FROM users WHERE email=? LIMIT 1",
		"INSERT INTO users (email) VALUES (?)",
		email)
}
