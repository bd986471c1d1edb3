package repository

import (
	"context"
	"database/sql"
)

// CredentialRepo persists admin password hashes (one row per admin user).
type CredentialRepo struct{ DB *sql.DB }

func NewCredentialRepo(db *sql.DB) *CredentialRepo { return &CredentialRepo{DB: db} }

// GetPasswordHash returns the stored bcrypt hash for userID.
func (r *CredentialRepo) GetPasswordHash(ctx context.Context, userID uint64) (string, error) {
	var hash string
	err := conn(ctx, r.DB).QueryRowContext(ctx,
		"SELECT password_hash FROM admin_credentials WHERE user_id=? LIMIT 1", userID).Scan(&hash)
	return hash, notFound(err)
}

// SetPasswordHash inserts or replaces the hash for userID. It returns
// ErrNotFound when no such user exists.
func (r *CredentialRepo) SetPasswordHash(ctx context.Context, userID uint64, hash string) error {
	_, err := conn(ctx, r.DB).ExecContext(ctx,
		"INSERT INTO admin_credentials (user_id, password_hash) VALUES (?,?) ON DUPLICATE KEY UPDATE password_hash=VALUES(password_hash)",
		userID, hash)
	if isMissingParent(err) {
		return ErrNotFound
	}
	return err
}
