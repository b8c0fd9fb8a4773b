package server

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// DefaultGraceWindow is how long a disconnected player's seat survives
// awaiting reconnection.
const DefaultGraceWindow = 5 * time.Minute

// graceEntry tracks a seated user whose connection dropped.
type graceEntry struct {
	tableID  string
	deadline time.Time
}

// Registry is the session registry: bidirectional user↔connection maps
// plus the reconnect grace bookkeeping. Its lock is leaf-level: it is
// never held while calling into a table or the wallet.
type Registry struct {
	logger *log.Logger
	clock  quartz.Clock
	window time.Duration

	mu     sync.Mutex
	byUser map[int64]*Connection
	grace  map[int64]graceEntry
}

// NewRegistry creates an empty session registry.
func NewRegistry(logger *log.Logger, clock quartz.Clock, window time.Duration) *Registry {
	if window <= 0 {
		window = DefaultGraceWindow
	}
	return &Registry{
		logger: logger.WithPrefix("sessions"),
		clock:  clock,
		window: window,
		byUser: make(map[int64]*Connection),
		grace:  make(map[int64]graceEntry),
	}
}

// Bind associates the user with the connection. A user holds at most one
// live connection: the previous one, if any, is returned for eviction. If
// the user was within a reconnect grace window, the table id to rebind is
// returned and the grace entry cleared.
func (r *Registry) Bind(userID int64, conn *Connection) (evicted *Connection, rebindTable string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok && prev != conn {
		evicted = prev
	}
	r.byUser[userID] = conn

	if g, ok := r.grace[userID]; ok {
		delete(r.grace, userID)
		rebindTable = g.tableID
		r.logger.Info("session rebound within grace", "user", userID, "table", g.tableID)
	}
	return evicted, rebindTable
}

// Unbind removes the mapping if it still points at this connection.
func (r *Registry) Unbind(userID int64, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byUser[userID] == conn {
		delete(r.byUser, userID)
	}
}

// ConnFor returns the user's live connection, or nil.
func (r *Registry) ConnFor(userID int64) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUser[userID]
}

// Connections returns a snapshot of all live connections.
func (r *Registry) Connections() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Connection, 0, len(r.byUser))
	for _, c := range r.byUser {
		out = append(out, c)
	}
	return out
}

// StartGrace opens a reconnect window for a seated user who disconnected.
func (r *Registry) StartGrace(userID int64, tableID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grace[userID] = graceEntry{
		tableID:  tableID,
		deadline: r.clock.Now().Add(r.window),
	}
	r.logger.Info("reconnect grace started", "user", userID, "table", tableID, "window", r.window)
}

// CancelGrace drops a grace entry, e.g. when the seat is vacated by other
// means.
func (r *Registry) CancelGrace(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.grace, userID)
}

// expiredSeat is a seat whose reconnect window ran out.
type expiredSeat struct {
	userID  int64
	tableID string
}

// takeExpired removes and returns all grace entries past their deadline.
// The caller cashes the seats out without holding the registry lock.
func (r *Registry) takeExpired() []expiredSeat {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	var out []expiredSeat
	for userID, g := range r.grace {
		if now.Before(g.deadline) {
			continue
		}
		delete(r.grace, userID)
		out = append(out, expiredSeat{userID: userID, tableID: g.tableID})
	}
	return out
}
