// Package wallet implements the real-money ledger: deposits, withdrawals,
// table buy-ins and cash-outs, all recorded as transactions in the store.
//
// Lock discipline: operations serialize per user on the wallet mutex, and
// any caller that also touches a table must take the wallet lock first.
// Outbound payment-provider calls never run under any lock held by table
// code; the two-phase deposit records intent, performs the external call,
// then finalizes.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/cardroomlabs/cardroom/internal/money"
	"github.com/cardroomlabs/cardroom/internal/payments"
	"github.com/cardroomlabs/cardroom/internal/store"
)

// MinWithdrawal is the smallest withdrawal the cage will pay out.
const MinWithdrawal = money.Cents(1000)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAmountTooSmall     = errors.New("amount below minimum")
	ErrBadDestination     = errors.New("invalid withdrawal destination")
	ErrOrderNotFound      = errors.New("deposit order not found")
	ErrOrderNotPending    = errors.New("deposit order is not pending")
	ErrNotPendingApproval = errors.New("withdrawal is not awaiting approval")
)

// Service is the wallet ledger.
type Service struct {
	db       *store.DB
	provider payments.Provider
	logger   *log.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates the wallet service.
func New(db *store.DB, provider payments.Provider, logger *log.Logger) *Service {
	return &Service{
		db:       db,
		provider: provider,
		logger:   logger.WithPrefix("wallet"),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// userLock returns the per-user mutex, creating it on first use.
func (s *Service) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Balance returns the user's wallet balance.
func (s *Service) Balance(ctx context.Context, userID int64) (money.Cents, error) {
	return s.db.Balance(ctx, userID)
}

// Transactions returns the user's recent ledger rows.
func (s *Service) Transactions(ctx context.Context, userID int64, limit int) ([]store.Transaction, error) {
	return s.db.TransactionsForUser(ctx, userID, limit)
}

// Deposit opens a checkout order at the payment provider and records a
// pending transaction. The balance is untouched until capture.
func (s *Service) Deposit(ctx context.Context, userID int64, amount money.Cents) (payments.Order, error) {
	if amount <= 0 {
		return payments.Order{}, ErrAmountTooSmall
	}

	// The provider call runs before any lock is taken.
	order, err := s.provider.CreateOrder(ctx, amount)
	if err != nil {
		return payments.Order{}, fmt.Errorf("create order: %w", err)
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	err = s.db.ApplyTransaction(ctx, store.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Kind:        store.TxKindDeposit,
		Status:      store.TxStatusPending,
		ExternalRef: order.ID,
		Description: "deposit via payment provider",
	}, 0)
	if err != nil {
		return payments.Order{}, err
	}
	s.logger.Info("deposit opened", "user", userID, "order", order.ID, "amount", amount)
	return order, nil
}

// CaptureDeposit captures an approved deposit order and credits the
// wallet. Capturing an already-completed order is an idempotent no-op that
// returns the completed transaction.
func (s *Service) CaptureDeposit(ctx context.Context, userID int64, orderID string) (store.Transaction, error) {
	t, err := s.db.TransactionByRef(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Transaction{}, ErrOrderNotFound
	}
	if err != nil {
		return store.Transaction{}, err
	}
	if t.UserID != userID {
		return store.Transaction{}, ErrOrderNotFound
	}
	if t.Status == store.TxStatusCompleted {
		return t, nil
	}
	if t.Status != store.TxStatusPending {
		return store.Transaction{}, ErrOrderNotPending
	}

	// Capture at the provider first; only a confirmed capture credits the
	// wallet.
	order, err := s.provider.CaptureOrder(ctx, orderID)
	if err != nil {
		return store.Transaction{}, fmt.Errorf("capture order: %w", err)
	}
	if order.Status != payments.OrderCompleted {
		return store.Transaction{}, ErrOrderNotPending
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	settled, err := s.db.SettleTransaction(ctx, t.ID, store.TxStatusPending, store.TxStatusCompleted, t.Amount)
	if errors.Is(err, store.ErrNotFound) {
		// A concurrent capture won the race; report the completed row.
		return s.db.TransactionByID(ctx, t.ID)
	}
	if err != nil {
		return store.Transaction{}, err
	}
	s.logger.Info("deposit captured", "user", userID, "order", orderID, "amount", t.Amount)
	return settled, nil
}

// CancelDeposit voids a pending deposit order without touching the
// balance.
func (s *Service) CancelDeposit(ctx context.Context, userID int64, orderID string) error {
	t, err := s.db.TransactionByRef(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if t.UserID != userID {
		return ErrOrderNotFound
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	_, err = s.db.SettleTransaction(ctx, t.ID, store.TxStatusPending, store.TxStatusCancelled, 0)
	if errors.Is(err, store.ErrNotFound) {
		return ErrOrderNotPending
	}
	return err
}

// Withdraw debits the balance immediately and queues the withdrawal for
// admin approval. The destination is a structured field on the
// transaction, not parsed out of the description.
func (s *Service) Withdraw(ctx context.Context, userID int64, amount money.Cents, destination string) (store.Transaction, error) {
	if amount < MinWithdrawal {
		return store.Transaction{}, ErrAmountTooSmall
	}
	if !strings.Contains(destination, "@") {
		return store.Transaction{}, ErrBadDestination
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	t := store.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      -amount,
		Kind:        store.TxKindWithdrawal,
		Status:      store.TxStatusPendingApproval,
		Destination: destination,
		Description: "withdrawal pending approval",
	}
	err := s.db.ApplyTransaction(ctx, t, -amount)
	if errors.Is(err, store.ErrInsufficientFunds) {
		return store.Transaction{}, ErrInsufficientFunds
	}
	if err != nil {
		return store.Transaction{}, err
	}
	s.logger.Info("withdrawal requested", "user", userID, "amount", amount, "destination", destination)
	return t, nil
}

// ApproveWithdrawal pays out an approved withdrawal. The funds were
// already held at request time, so approval only sends the payout and
// completes the row.
func (s *Service) ApproveWithdrawal(ctx context.Context, txID string) error {
	t, err := s.db.TransactionByID(ctx, txID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotPendingApproval
	}
	if err != nil {
		return err
	}
	if t.Kind != store.TxKindWithdrawal || t.Status != store.TxStatusPendingApproval {
		return ErrNotPendingApproval
	}

	batchID, err := s.provider.SendPayout(ctx, t.Destination, -t.Amount)
	if err != nil {
		return fmt.Errorf("send payout: %w", err)
	}

	l := s.userLock(t.UserID)
	l.Lock()
	defer l.Unlock()

	if _, err := s.db.SettleTransaction(ctx, txID, store.TxStatusPendingApproval, store.TxStatusCompleted, 0); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotPendingApproval
		}
		return err
	}
	if err := s.db.SetTransactionRef(ctx, txID, batchID); err != nil {
		s.logger.Error("recording payout batch failed", "tx", txID, "batch", batchID, "error", err)
	}
	s.logger.Info("withdrawal approved", "tx", txID, "batch", batchID)
	return nil
}

// RejectWithdrawal returns the held funds to the wallet.
func (s *Service) RejectWithdrawal(ctx context.Context, txID string) error {
	t, err := s.db.TransactionByID(ctx, txID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotPendingApproval
	}
	if err != nil {
		return err
	}
	if t.Kind != store.TxKindWithdrawal || t.Status != store.TxStatusPendingApproval {
		return ErrNotPendingApproval
	}

	l := s.userLock(t.UserID)
	l.Lock()
	defer l.Unlock()

	_, err = s.db.SettleTransaction(ctx, txID, store.TxStatusPendingApproval, store.TxStatusRejected, -t.Amount)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotPendingApproval
	}
	if err == nil {
		s.logger.Info("withdrawal rejected", "tx", txID, "refund", -t.Amount)
	}
	return err
}

// PendingWithdrawals lists withdrawals awaiting review.
func (s *Service) PendingWithdrawals(ctx context.Context) ([]store.Transaction, error) {
	return s.db.PendingWithdrawals(ctx)
}

// BuyIn debits the wallet for a table buy-in. The caller seats the player
// afterwards and must call RefundBuyIn if seating fails.
func (s *Service) BuyIn(ctx context.Context, userID int64, tableID string, amount money.Cents) error {
	if amount <= 0 {
		return ErrAmountTooSmall
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	err := s.db.ApplyTransaction(ctx, store.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      -amount,
		Kind:        store.TxKindBuyIn,
		Status:      store.TxStatusCompleted,
		Description: "buy-in at table " + tableID,
	}, -amount)
	if errors.Is(err, store.ErrInsufficientFunds) {
		return ErrInsufficientFunds
	}
	return err
}

// RefundBuyIn compensates a buy-in whose seating failed.
func (s *Service) RefundBuyIn(ctx context.Context, userID int64, tableID string, amount money.Cents) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	return s.db.ApplyTransaction(ctx, store.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Kind:        store.TxKindRefund,
		Status:      store.TxStatusCompleted,
		Description: "buy-in refund for table " + tableID,
	}, amount)
}

// CashOut credits a player's remaining stack back to the wallet when they
// leave a table.
func (s *Service) CashOut(ctx context.Context, userID int64, tableID string, amount money.Cents) error {
	if amount == 0 {
		return nil
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	return s.db.ApplyTransaction(ctx, store.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Kind:        store.TxKindCashOut,
		Status:      store.TxStatusCompleted,
		Description: "cash out from table " + tableID,
	}, amount)
}

// AdminAdjust applies a signed balance adjustment with an audit trail.
func (s *Service) AdminAdjust(ctx context.Context, userID int64, delta money.Cents, description string) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	err := s.db.ApplyTransaction(ctx, store.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      delta,
		Kind:        store.TxKindAdminAdjust,
		Status:      store.TxStatusCompleted,
		Description: description,
	}, delta)
	if errors.Is(err, store.ErrInsufficientFunds) {
		return ErrInsufficientFunds
	}
	if err == nil {
		s.logger.Info("admin adjustment", "user", userID, "delta", delta, "reason", description)
	}
	return err
}
