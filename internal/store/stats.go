package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cardroomlabs/cardroom/internal/money"
)

// Stats is a user's lifetime play statistics.
type Stats struct {
	UserID      int64
	HandsPlayed int64
	HandsWon    int64
	BiggestPot  money.Cents
}

// HandOutcome is one participant's result in a finished hand.
type HandOutcome struct {
	UserID int64
	Won    money.Cents
	Net    money.Cents
}

// RecordHand writes game history rows and updates statistics for every
// participant of a finished hand, in one SQL transaction.
func (db *DB) RecordHand(ctx context.Context, tableID, handID string, pot money.Cents, outcomes []HandOutcome) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, o := range outcomes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO game_history (table_id, hand_id, user_id, won, net)
			VALUES (?, ?, ?, ?, ?)
		`, tableID, handID, o.UserID, int64(o.Won), int64(o.Net)); err != nil {
			return fmt.Errorf("insert game history: %w", err)
		}

		won := 0
		if o.Won > 0 {
			won = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO statistics (user_id, hands_played, hands_won, biggest_pot)
			VALUES (?, 1, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				hands_played = hands_played + 1,
				hands_won = hands_won + excluded.hands_won,
				biggest_pot = MAX(biggest_pot, excluded.biggest_pot)
		`, o.UserID, won, int64(o.Won)); err != nil {
			return fmt.Errorf("update statistics: %w", err)
		}
	}

	return tx.Commit()
}

// StatsForUser returns a user's statistics. A user who has never played
// gets zeros rather than ErrNotFound.
func (db *DB) StatsForUser(ctx context.Context, userID int64) (Stats, error) {
	s := Stats{UserID: userID}
	var biggest int64
	err := db.QueryRowContext(ctx, `
		SELECT hands_played, hands_won, biggest_pot FROM statistics WHERE user_id = ?
	`, userID).Scan(&s.HandsPlayed, &s.HandsWon, &biggest)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return Stats{}, err
	}
	s.BiggestPot = money.Cents(biggest)
	return s, nil
}

// HandRecord is one game history row.
type HandRecord struct {
	ID        int64
	TableID   string
	HandID    string
	UserID    int64
	Won       money.Cents
	Net       money.Cents
	CreatedAt time.Time
}

// HistoryForUser returns the user's most recent hands.
func (db *DB) HistoryForUser(ctx context.Context, userID int64, limit int) ([]HandRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, table_id, hand_id, user_id, won, net, created_at
		FROM game_history WHERE user_id = ?
		ORDER BY id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HandRecord
	for rows.Next() {
		var r HandRecord
		var won, net int64
		if err := rows.Scan(&r.ID, &r.TableID, &r.HandID, &r.UserID, &won, &net, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Won = money.Cents(won)
		r.Net = money.Cents(net)
		out = append(out, r)
	}
	return out, rows.Err()
}
