package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/tradebench/tradebench/internal/model"
)

const (
	authSessionTTL = 7 * 24 * time.Hour
	resetTokenTTL  = 30 * time.Minute
)

// CreateAuthSession creates a new auth session token for a user.
func (s *Store) CreateAuthSession(userID int64) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(authSessionTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthSession returns the auth session for the given token, or nil if not
// found or expired. Expired sessions are deleted on read.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT id, user_id, created_at, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(token)
		return nil, nil
	}
	return &sess, nil
}

// DeleteAuthSession removes a session token.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// CleanupExpiredSessions removes all expired auth sessions and reset tokens.
func (s *Store) CleanupExpiredSessions() error {
	now := time.Now()
	if _, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, now); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM reset_tokens WHERE expires_at < ?`, now)
	return err
}

// CreateResetToken creates a single-use password reset token for a user.
func (s *Store) CreateResetToken(userID int64) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO reset_tokens (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(resetTokenTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeResetToken validates and deletes a reset token, returning the user
// id it was issued for. Returns 0 if the token is unknown or expired.
func (s *Store) ConsumeResetToken(token string) (int64, error) {
	var userID int64
	var expiresAt time.Time
	err := s.db.QueryRow(
		`SELECT user_id, expires_at FROM reset_tokens WHERE id = ?`, token,
	).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if _, err := s.db.Exec(`DELETE FROM reset_tokens WHERE id = ?`, token); err != nil {
		return 0, err
	}
	if time.Now().After(expiresAt) {
		return 0, nil
	}
	return userID, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
