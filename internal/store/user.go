package store

import (
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/tradebench/tradebench/internal/model"
)

const userColumns = `id, email, password_hash, full_name, first_name, last_name,
	selected_year, security_question, security_answer_hash, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.FirstName,
		&u.LastName, &u.SelectedYear, &u.SecurityQuestion, &u.SecurityAnswerHash,
		&u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user. Emails are stored lowercased.
func (s *Store) CreateUser(u model.User) (int64, error) {
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO users (email, password_hash, full_name, first_name, last_name,
		 selected_year, security_question, security_answer_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.ToLower(u.Email), u.PasswordHash, u.FullName, u.FirstName, u.LastName,
		u.SelectedYear, u.SecurityQuestion, u.SecurityAnswerHash, now, now,
	)
	if err != nil {
		slog.Error("failed to create user", "email", u.Email, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "email", u.Email)
	return id, nil
}

// GetUserByEmail returns a user by email (case-insensitive), or nil.
func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email),
	)
	return scanUser(row)
}

// GetUserByID returns a user by ID, or nil.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// UpdateSelectedYear sets the user's active apprenticeship year.
func (s *Store) UpdateSelectedYear(id int64, year int) error {
	_, err := s.db.Exec(
		`UPDATE users SET selected_year = ?, updated_at = ? WHERE id = ?`,
		year, time.Now(), id,
	)
	return err
}

// UpdatePasswordHash replaces a user's password hash.
func (s *Store) UpdatePasswordHash(id int64, hash string) error {
	_, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now(), id,
	)
	return err
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
