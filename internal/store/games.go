package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cardroomlabs/cardroom/internal/money"
)

// PrivateGame is a friend-game table definition. The password is stored so
// the table can be reactivated across restarts.
type PrivateGame struct {
	ID         string
	CreatorID  int64
	Name       string
	Password   string
	SmallBlind money.Cents
	BigBlind   money.Cents
	MinBuyIn   money.Cents
	MaxBuyIn   money.Cents
	MaxSeats   int
	Active     bool
	CreatedAt  time.Time
}

// CreatePrivateGame persists a friend-game definition.
func (db *DB) CreatePrivateGame(ctx context.Context, g PrivateGame) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO private_games (id, creator_id, name, password, small_blind, big_blind, min_buy_in, max_buy_in, max_seats, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.CreatorID, g.Name, g.Password,
		int64(g.SmallBlind), int64(g.BigBlind), int64(g.MinBuyIn), int64(g.MaxBuyIn), g.MaxSeats, boolToInt(g.Active))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// PrivateGameByID fetches one friend game.
func (db *DB) PrivateGameByID(ctx context.Context, id string) (PrivateGame, error) {
	return scanPrivateGame(db.QueryRowContext(ctx, `
		SELECT id, creator_id, name, password, small_blind, big_blind, min_buy_in, max_buy_in, max_seats, active, created_at
		FROM private_games WHERE id = ?
	`, id))
}

// PrivateGamesByCreator lists a user's friend games, newest first.
func (db *DB) PrivateGamesByCreator(ctx context.Context, creatorID int64) ([]PrivateGame, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, creator_id, name, password, small_blind, big_blind, min_buy_in, max_buy_in, max_seats, active, created_at
		FROM private_games WHERE creator_id = ? ORDER BY created_at DESC
	`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PrivateGame
	for rows.Next() {
		g, err := scanPrivateGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ActivePrivateGames lists all active friend games, for restoring tables on
// server start.
func (db *DB) ActivePrivateGames(ctx context.Context) ([]PrivateGame, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, creator_id, name, password, small_blind, big_blind, min_buy_in, max_buy_in, max_seats, active, created_at
		FROM private_games WHERE active = 1 ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PrivateGame
	for rows.Next() {
		g, err := scanPrivateGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SetPrivateGameActive marks a friend game active or deleted.
func (db *DB) SetPrivateGameActive(ctx context.Context, id string, active bool) error {
	res, err := db.ExecContext(ctx, `UPDATE private_games SET active = ? WHERE id = ?`, boolToInt(active), id)
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

func scanPrivateGame(row rowScanner) (PrivateGame, error) {
	var g PrivateGame
	var sb, bb, minBuy, maxBuy int64
	var active int
	err := row.Scan(&g.ID, &g.CreatorID, &g.Name, &g.Password,
		&sb, &bb, &minBuy, &maxBuy, &g.MaxSeats, &active, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PrivateGame{}, ErrNotFound
	}
	if err != nil {
		return PrivateGame{}, err
	}
	g.SmallBlind = money.Cents(sb)
	g.BigBlind = money.Cents(bb)
	g.MinBuyIn = money.Cents(minBuy)
	g.MaxBuyIn = money.Cents(maxBuy)
	g.Active = active != 0
	return g, nil
}
