package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cardroomlabs/cardroom/internal/money"
)

// Transaction kinds.
const (
	TxKindDeposit     = "deposit"
	TxKindWithdrawal  = "withdrawal"
	TxKindBuyIn       = "buy_in"
	TxKindCashOut     = "cash_out"
	TxKindAdminAdjust = "admin_adjust"
	TxKindRefund      = "refund"
)

// Transaction statuses.
const (
	TxStatusPending         = "pending"
	TxStatusCompleted       = "completed"
	TxStatusCancelled       = "cancelled"
	TxStatusPendingApproval = "pending_approval"
	TxStatusRejected        = "rejected"
)

// Transaction is one ledger row. Amount is signed: credits positive, debits
// negative. Destination carries the payout target for withdrawals.
type Transaction struct {
	ID          string
	UserID      int64
	Amount      money.Cents
	Kind        string
	Status      string
	ExternalRef string
	Destination string
	Description string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Balance returns the wallet balance for a user.
func (db *DB) Balance(ctx context.Context, userID int64) (money.Cents, error) {
	var balance int64
	err := db.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE user_id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return money.Cents(balance), nil
}

// ApplyTransaction inserts a ledger row and applies delta to the wallet in
// one SQL transaction. Delta is zero for rows that merely record intent
// (e.g. a deposit order awaiting capture). Returns ErrInsufficientFunds if
// the balance would go negative.
func (db *DB) ApplyTransaction(ctx context.Context, t Transaction, delta money.Cents) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyDelta(ctx, tx, t.UserID, delta); err != nil {
		return err
	}

	var completedAt any
	if t.CompletedAt != nil {
		completedAt = *t.CompletedAt
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, kind, status, external_ref, destination, description, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, int64(t.Amount), t.Kind, t.Status, t.ExternalRef, t.Destination, t.Description, completedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert transaction: %w", err)
	}

	return tx.Commit()
}

// SettleTransaction moves a ledger row to a terminal status, stamps the
// completion time, and applies delta to the wallet, atomically. It returns
// the updated row. ErrNotFound covers both a missing row and one that is no
// longer in fromStatus, which makes settlement idempotent under races.
func (db *DB) SettleTransaction(ctx context.Context, id, fromStatus, toStatus string, delta money.Cents) (Transaction, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	t, err := scanTransaction(tx.QueryRowContext(ctx, `
		SELECT id, user_id, amount, kind, status, external_ref, destination, description, created_at, completed_at
		FROM transactions WHERE id = ? AND status = ?
	`, id, fromStatus))
	if err != nil {
		return Transaction{}, err
	}

	if err := applyDelta(ctx, tx, t.UserID, delta); err != nil {
		return Transaction{}, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE transactions SET status = ?, completed_at = ? WHERE id = ?
	`, toStatus, now, id); err != nil {
		return Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return Transaction{}, err
	}
	t.Status = toStatus
	t.CompletedAt = &now
	return t, nil
}

func applyDelta(ctx context.Context, tx *sql.Tx, userID int64, delta money.Cents) error {
	if delta == 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets SET balance = balance + ? WHERE user_id = ? AND balance + ? >= 0
	`, int64(delta), userID, int64(delta))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var balance int64
		err := tx.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE user_id = ?`, userID).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrInsufficientFunds
	}
	return nil
}

// TransactionByRef fetches a ledger row by its external (payment provider)
// reference.
func (db *DB) TransactionByRef(ctx context.Context, ref string) (Transaction, error) {
	return scanTransaction(db.QueryRowContext(ctx, `
		SELECT id, user_id, amount, kind, status, external_ref, destination, description, created_at, completed_at
		FROM transactions WHERE external_ref = ?
	`, ref))
}

// SetTransactionRef updates the external reference on a ledger row, e.g.
// with the payout batch id once a withdrawal is paid.
func (db *DB) SetTransactionRef(ctx context.Context, id, ref string) error {
	_, err := db.ExecContext(ctx, `UPDATE transactions SET external_ref = ? WHERE id = ?`, ref, id)
	return err
}

// TransactionByID fetches one ledger row.
func (db *DB) TransactionByID(ctx context.Context, id string) (Transaction, error) {
	return scanTransaction(db.QueryRowContext(ctx, `
		SELECT id, user_id, amount, kind, status, external_ref, destination, description, created_at, completed_at
		FROM transactions WHERE id = ?
	`, id))
}

// TransactionsForUser returns the user's most recent ledger rows.
func (db *DB) TransactionsForUser(ctx context.Context, userID int64, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, amount, kind, status, external_ref, destination, description, created_at, completed_at
		FROM transactions WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// PendingWithdrawals lists withdrawal requests awaiting admin review.
func (db *DB) PendingWithdrawals(ctx context.Context) ([]Transaction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, amount, kind, status, external_ref, destination, description, created_at, completed_at
		FROM transactions WHERE kind = ? AND status = ?
		ORDER BY created_at
	`, TxKindWithdrawal, TxStatusPendingApproval)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	var amount int64
	var completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &amount, &t.Kind, &t.Status,
		&t.ExternalRef, &t.Destination, &t.Description, &t.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, err
	}
	t.Amount = money.Cents(amount)
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]Transaction, error) {
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
