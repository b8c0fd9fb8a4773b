package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// User is an account row.
type User struct {
	ID                 int64
	Username           string
	Email              string
	PasswordHash       string
	SecurityQuestion   int
	SecurityAnswerHash string
	Banned             bool
	CreatedAt          time.Time
}

// CreateUser inserts a user together with an empty wallet and statistics
// row. Returns ErrDuplicate if the username or email is taken.
func (db *DB) CreateUser(ctx context.Context, u User) (User, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, security_question, security_answer_hash)
		VALUES (?, ?, ?, ?, ?)
	`, u.Username, u.Email, u.PasswordHash, u.SecurityQuestion, u.SecurityAnswerHash)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return User{}, err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO wallets (user_id, balance) VALUES (?, 0)`, u.ID); err != nil {
		return User{}, fmt.Errorf("create wallet: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO statistics (user_id) VALUES (?)`, u.ID); err != nil {
		return User{}, fmt.Errorf("create statistics: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return User{}, err
	}
	u.CreatedAt = time.Now().UTC()
	return u, nil
}

// UserByUsername looks a user up by name.
func (db *DB) UserByUsername(ctx context.Context, username string) (User, error) {
	return db.scanUser(db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, security_question, security_answer_hash, banned, created_at
		FROM users WHERE username = ?
	`, username))
}

// UserByEmail looks a user up by email address.
func (db *DB) UserByEmail(ctx context.Context, email string) (User, error) {
	return db.scanUser(db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, security_question, security_answer_hash, banned, created_at
		FROM users WHERE email = ?
	`, email))
}

// UserByID looks a user up by id.
func (db *DB) UserByID(ctx context.Context, id int64) (User, error) {
	return db.scanUser(db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, security_question, security_answer_hash, banned, created_at
		FROM users WHERE id = ?
	`, id))
}

func (db *DB) scanUser(row *sql.Row) (User, error) {
	var u User
	var banned int
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.SecurityQuestion, &u.SecurityAnswerHash, &banned, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.Banned = banned != 0
	return u, nil
}

// SetBanned flips the suspension flag on an account.
func (db *DB) SetBanned(ctx context.Context, userID int64, banned bool) error {
	res, err := db.ExecContext(ctx, `UPDATE users SET banned = ? WHERE id = ?`, boolToInt(banned), userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns all accounts, newest first, for the admin plane.
func (db *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, username, email, password_hash, security_question, security_answer_hash, banned, created_at
		FROM users ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var banned int
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&u.SecurityQuestion, &u.SecurityAnswerHash, &banned, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Banned = banned != 0
		users = append(users, u)
	}
	return users, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
