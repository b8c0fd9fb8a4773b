package payments

import (
	"context"
	"fmt"
	"sync"

	"github.com/cardroomlabs/cardroom/internal/money"
)

// Fake is an in-memory Provider for tests and development mode. Orders are
// created unapproved; tests call Approve to simulate the payer's redirect
// round trip.
type Fake struct {
	mu      sync.Mutex
	seq     int
	orders  map[string]*Order
	payouts []FakePayout
}

// FakePayout records one SendPayout call.
type FakePayout struct {
	Receiver string
	Amount   money.Cents
}

// NewFake creates an empty fake provider.
func NewFake() *Fake {
	return &Fake{orders: make(map[string]*Order)}
}

// CreateOrder opens an order in the CREATED state.
func (f *Fake) CreateOrder(_ context.Context, amount money.Cents) (Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	o := &Order{
		ID:         fmt.Sprintf("FAKE-%d", f.seq),
		Status:     OrderCreated,
		Amount:     amount,
		ApproveURL: fmt.Sprintf("https://pay.example.com/approve/FAKE-%d", f.seq),
	}
	f.orders[o.ID] = o
	return *o, nil
}

// Approve simulates the payer approving the checkout.
func (f *Fake) Approve(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = OrderApproved
	return nil
}

// GetOrder returns the order state.
func (f *Fake) GetOrder(_ context.Context, id string) (Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return *o, nil
}

// CaptureOrder completes an approved order.
func (f *Fake) CaptureOrder(_ context.Context, id string) (Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	if o.Status == OrderCreated {
		return Order{}, ErrNotApproved
	}
	o.Status = OrderCompleted
	return *o, nil
}

// SendPayout records the payout and returns a synthetic batch id.
func (f *Fake) SendPayout(_ context.Context, receiver string, amount money.Cents) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payouts = append(f.payouts, FakePayout{Receiver: receiver, Amount: amount})
	return fmt.Sprintf("FAKEBATCH-%d", len(f.payouts)), nil
}

// Payouts returns the payouts sent so far.
func (f *Fake) Payouts() []FakePayout {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakePayout{}, f.payouts...)
}
