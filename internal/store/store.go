package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when a unique constraint is violated, e.g. a
// username or email that is already registered.
var ErrDuplicate = errors.New("store: duplicate")

// ErrInsufficientFunds is returned when a balance change would take a
// wallet below zero.
var ErrInsufficientFunds = errors.New("store: insufficient funds")

// DB wraps the sqlite connection pool. All mutating operations run inside
// their own SQL transaction so a crash never leaves a balance without its
// ledger row or vice versa.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and applies
// the schema. WAL mode and a busy timeout let the connection pool serve the
// game server and the admin plane concurrently.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			security_question INTEGER NOT NULL DEFAULT 0,
			security_answer_hash TEXT NOT NULL DEFAULT '',
			banned INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS wallets (
			user_id INTEGER PRIMARY KEY REFERENCES users(id),
			balance INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			amount INTEGER NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			external_ref TEXT NOT NULL DEFAULT '',
			destination TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user
			ON transactions(user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS statistics (
			user_id INTEGER PRIMARY KEY REFERENCES users(id),
			hands_played INTEGER NOT NULL DEFAULT 0,
			hands_won INTEGER NOT NULL DEFAULT 0,
			biggest_pot INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS game_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_id TEXT NOT NULL,
			hand_id TEXT NOT NULL,
			user_id INTEGER NOT NULL REFERENCES users(id),
			won INTEGER NOT NULL,
			net INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_history_user
			ON game_history(user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS friends (
			user_id INTEGER NOT NULL REFERENCES users(id),
			friend_id INTEGER NOT NULL REFERENCES users(id),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, friend_id)
		)`,
		`CREATE TABLE IF NOT EXISTS private_games (
			id TEXT PRIMARY KEY,
			creator_id INTEGER NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			password TEXT NOT NULL DEFAULT '',
			small_blind INTEGER NOT NULL,
			big_blind INTEGER NOT NULL,
			min_buy_in INTEGER NOT NULL,
			max_buy_in INTEGER NOT NULL,
			max_seats INTEGER NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// isUniqueViolation unwraps the driver error for unique-constraint failures.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
