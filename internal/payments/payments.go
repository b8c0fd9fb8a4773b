// Package payments abstracts the payment processor used for real-money
// deposits and withdrawal payouts.
package payments

import (
	"context"
	"errors"

	"github.com/cardroomlabs/cardroom/internal/money"
)

// Order statuses, following PayPal's checkout vocabulary.
const (
	OrderCreated   = "CREATED"
	OrderApproved  = "APPROVED"
	OrderCompleted = "COMPLETED"
)

var (
	// ErrOrderNotFound is returned when the processor does not know the
	// order id.
	ErrOrderNotFound = errors.New("payments: order not found")
	// ErrNotApproved is returned when capturing an order the payer has not
	// approved yet.
	ErrNotApproved = errors.New("payments: order not approved")
)

// Order is a checkout order at the payment processor.
type Order struct {
	ID         string
	Status     string
	Amount     money.Cents
	ApproveURL string
}

// Provider is the payment processor interface. Implementations must be safe
// for concurrent use.
type Provider interface {
	// CreateOrder opens a checkout order the payer approves out of band.
	CreateOrder(ctx context.Context, amount money.Cents) (Order, error)
	// GetOrder fetches the current order state.
	GetOrder(ctx context.Context, id string) (Order, error)
	// CaptureOrder captures an approved order, moving the funds.
	CaptureOrder(ctx context.Context, id string) (Order, error)
	// SendPayout pushes funds to the receiver (an email or processor
	// handle) and returns the processor's batch reference.
	SendPayout(ctx context.Context, receiver string, amount money.Cents) (string, error)
}
