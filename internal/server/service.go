package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cardroomlabs/cardroom/internal/auth"
	"github.com/cardroomlabs/cardroom/internal/game"
	"github.com/cardroomlabs/cardroom/internal/money"
	"github.com/cardroomlabs/cardroom/internal/store"
	"github.com/cardroomlabs/cardroom/internal/wallet"
)

// graceReapInterval is how often expired reconnect windows are swept.
const graceReapInterval = 30 * time.Second

// Settings exposes the runtime-mutable server settings.
type Settings interface {
	MaintenanceMode() bool
	TurnTimeout() time.Duration
}

var (
	ErrTableNotFound    = errors.New("table not found")
	ErrMaintenanceMode  = errors.New("server is in maintenance mode")
	ErrBuyInOutOfBounds = errors.New("buy-in out of bounds")
	ErrWrongPassword    = errors.New("wrong table password")
	ErrNotCreator       = errors.New("only the creator can delete this game")
	ErrNameTaken        = errors.New("a game with this name already exists")
	ErrAlreadyAtTable   = errors.New("already seated at a table")
	ErrTableOccupied    = errors.New("table has seated players")
	ErrTableActive      = errors.New("table is already active")
)

// Service owns the table registry and coordinates tables, wallets,
// sessions and persistence. It is what the protocol handlers and the
// admin plane both talk to.
type Service struct {
	db       *store.DB
	auth     *auth.Service
	wallet   *wallet.Service
	sessions *Registry
	settings Settings
	metrics  *Metrics
	logger   *log.Logger
	clock    quartz.Clock

	mu     sync.RWMutex
	tables map[string]*game.Table
}

// NewService wires the hub together.
func NewService(db *store.DB, authSvc *auth.Service, walletSvc *wallet.Service,
	sessions *Registry, settings Settings, logger *log.Logger, clock quartz.Clock) *Service {
	return &Service{
		db:       db,
		auth:     authSvc,
		wallet:   walletSvc,
		sessions: sessions,
		settings: settings,
		metrics:  NewMetrics(prometheus.NewRegistry()),
		logger:   logger.WithPrefix("hub"),
		clock:    clock,
		tables:   make(map[string]*game.Table),
	}
}

// SetMetrics replaces the default unexported registry instruments with
// ones registered where the admin plane can serve them.
func (s *Service) SetMetrics(m *Metrics) {
	s.metrics = m
}

// Auth returns the account service.
func (s *Service) Auth() *auth.Service { return s.auth }

// Wallet returns the ledger service.
func (s *Service) Wallet() *wallet.Service { return s.wallet }

// Store returns the persistence layer.
func (s *Service) Store() *store.DB { return s.db }

// Sessions returns the session registry.
func (s *Service) Sessions() *Registry { return s.sessions }

// Run starts the background janitor that cashes out seats whose reconnect
// grace expired. Blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	err := s.clock.TickerFunc(ctx, graceReapInterval, func() error {
		s.reapExpiredSeats(context.Background())
		return nil
	}, "grace-reaper").Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) reapExpiredSeats(ctx context.Context) {
	for _, seat := range s.sessions.takeExpired() {
		tbl := s.table(seat.tableID)
		if tbl == nil {
			continue
		}
		refund, err := tbl.RemovePlayer(seat.userID)
		if err != nil {
			continue
		}
		s.logger.Info("reconnect grace expired, seat cashed out",
			"user", seat.userID, "table", seat.tableID, "refund", refund)
		if err := s.wallet.CashOut(ctx, seat.userID, seat.tableID, refund); err != nil {
			s.logger.Error("cash out after grace expiry failed",
				"user", seat.userID, "table", seat.tableID, "error", err)
		}
	}
}

// --- table registry ---

// AddTable registers a table built from the given config.
func (s *Service) AddTable(cfg game.Config) *game.Table {
	tbl := game.New(cfg,
		game.WithLogger(s.logger),
		game.WithClock(s.clock),
		game.WithTurnTimeout(s.settings.TurnTimeout),
		game.WithNotify(s.broadcast),
		game.WithHandFinished(s.handFinished),
	)
	s.mu.Lock()
	s.tables[cfg.ID] = tbl
	n := len(s.tables)
	s.mu.Unlock()
	s.metrics.TablesActive.Set(float64(n))
	s.logger.Info("table registered", "table", cfg.ID, "name", cfg.Name, "private", cfg.Private)
	return tbl
}

// RemoveTable closes a table, cashing out every seated player.
func (s *Service) RemoveTable(ctx context.Context, tableID string) error {
	tbl := s.table(tableID)
	if tbl == nil {
		return ErrTableNotFound
	}

	for _, p := range tbl.SnapshotFor(0).Players {
		refund, err := tbl.RemovePlayer(p.UserID)
		if err != nil {
			continue
		}
		if err := s.wallet.CashOut(ctx, p.UserID, tableID, refund); err != nil {
			s.logger.Error("cash out on table removal failed", "user", p.UserID, "error", err)
		}
		s.sessions.CancelGrace(p.UserID)
	}
	tbl.Close()

	s.mu.Lock()
	delete(s.tables, tableID)
	n := len(s.tables)
	s.mu.Unlock()
	s.metrics.TablesActive.Set(float64(n))
	s.logger.Info("table removed", "table", tableID)
	return nil
}

// UpdateTable replaces an empty table's parameters. Occupied tables
// cannot be reconfigured under seated players.
func (s *Service) UpdateTable(ctx context.Context, tableID string, cfg game.Config) (game.Info, error) {
	tbl := s.table(tableID)
	if tbl == nil {
		return game.Info{}, ErrTableNotFound
	}
	if tbl.Info().PlayerCount > 0 {
		return game.Info{}, ErrTableOccupied
	}
	old := tbl.Config()
	cfg.ID = old.ID
	cfg.Private = old.Private
	cfg.CreatorID = old.CreatorID
	if err := s.RemoveTable(ctx, tableID); err != nil {
		return game.Info{}, err
	}
	return s.AddTable(cfg).Info(), nil
}

// ReactivateFriendGame re-registers a previously deleted private game
// from its persisted row.
func (s *Service) ReactivateFriendGame(ctx context.Context, tableID string) (game.Info, error) {
	if s.table(tableID) != nil {
		return game.Info{}, ErrTableActive
	}
	g, err := s.db.PrivateGameByID(ctx, tableID)
	if err != nil {
		return game.Info{}, err
	}
	if err := s.db.SetPrivateGameActive(ctx, tableID, true); err != nil {
		return game.Info{}, err
	}
	tbl := s.AddTable(game.Config{
		ID:         g.ID,
		Name:       g.Name,
		SmallBlind: g.SmallBlind,
		BigBlind:   g.BigBlind,
		MinBuyIn:   g.MinBuyIn,
		MaxBuyIn:   g.MaxBuyIn,
		MaxSeats:   g.MaxSeats,
		Private:    true,
		CreatorID:  g.CreatorID,
		Password:   g.Password,
	})
	return tbl.Info(), nil
}

func (s *Service) table(tableID string) *game.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[tableID]
}

// tableWithPlayer finds the table the user is seated at, if any.
func (s *Service) tableWithPlayer(userID int64) *game.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tbl := range s.tables {
		if tbl.HasPlayer(userID) {
			return tbl
		}
	}
	return nil
}

// CashTables lists the public tables.
func (s *Service) CashTables() []game.Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []game.Info
	for _, tbl := range s.tables {
		if info := tbl.Info(); !info.Private {
			out = append(out, info)
		}
	}
	return out
}

// FriendGames lists active private tables.
func (s *Service) FriendGames() []game.Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []game.Info
	for _, tbl := range s.tables {
		if info := tbl.Info(); info.Private {
			out = append(out, info)
		}
	}
	return out
}

// MyFriendGames lists every private game the user has created, from the
// store, deactivated ones included so creators see what can come back.
func (s *Service) MyFriendGames(ctx context.Context, creatorID int64) ([]store.PrivateGame, error) {
	return s.db.PrivateGamesByCreator(ctx, creatorID)
}

// AllTables lists everything, for the admin plane.
func (s *Service) AllTables() []game.Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]game.Info, 0, len(s.tables))
	for _, tbl := range s.tables {
		out = append(out, tbl.Info())
	}
	return out
}

// --- seating ---

// JoinCashTable buys the user in and seats them. The wallet is debited
// first; if seating then fails the debit is compensated.
func (s *Service) JoinCashTable(ctx context.Context, userID int64, username, tableID string, buyIn money.Cents) (game.Snapshot, error) {
	if s.settings.MaintenanceMode() {
		return game.Snapshot{}, ErrMaintenanceMode
	}
	tbl := s.table(tableID)
	if tbl == nil {
		return game.Snapshot{}, ErrTableNotFound
	}
	return s.seat(ctx, tbl, userID, username, buyIn)
}

func (s *Service) seat(ctx context.Context, tbl *game.Table, userID int64, username string, buyIn money.Cents) (game.Snapshot, error) {
	cfg := tbl.Config()
	if buyIn < cfg.MinBuyIn || buyIn > cfg.MaxBuyIn {
		return game.Snapshot{}, ErrBuyInOutOfBounds
	}
	if other := s.tableWithPlayer(userID); other != nil {
		return game.Snapshot{}, ErrAlreadyAtTable
	}

	if err := s.wallet.BuyIn(ctx, userID, cfg.ID, buyIn); err != nil {
		return game.Snapshot{}, err
	}
	if _, err := tbl.AddPlayer(game.PlayerInfo{UserID: userID, Username: username}, buyIn, -1); err != nil {
		// Compensate the debit: the seat never materialized.
		if rerr := s.wallet.RefundBuyIn(ctx, userID, cfg.ID, buyIn); rerr != nil {
			s.logger.Error("buy-in refund failed", "user", userID, "table", cfg.ID, "error", rerr)
		}
		return game.Snapshot{}, err
	}
	return tbl.SnapshotFor(userID), nil
}

// LeaveTable unseats the user from whatever table they are at and credits
// the remaining stack back to the wallet.
func (s *Service) LeaveTable(ctx context.Context, userID int64) error {
	tbl := s.tableWithPlayer(userID)
	if tbl == nil {
		return ErrTableNotFound
	}
	refund, err := tbl.RemovePlayer(userID)
	if err != nil {
		return err
	}
	s.sessions.CancelGrace(userID)
	return s.wallet.CashOut(ctx, userID, tbl.ID(), refund)
}

// --- friend games ---

// CreateFriendGame persists and registers a private table.
func (s *Service) CreateFriendGame(ctx context.Context, creatorID int64, g store.PrivateGame) (game.Info, error) {
	if s.settings.MaintenanceMode() {
		return game.Info{}, ErrMaintenanceMode
	}
	if g.Name == "" || g.SmallBlind <= 0 || g.BigBlind < g.SmallBlind ||
		g.MinBuyIn <= 0 || g.MaxBuyIn < g.MinBuyIn || g.MaxSeats < 2 || g.MaxSeats > 10 {
		return game.Info{}, fmt.Errorf("invalid friend game parameters")
	}
	if s.friendGameByName(g.Name) != nil {
		return game.Info{}, ErrNameTaken
	}

	g.ID = uuid.NewString()
	g.CreatorID = creatorID
	g.Active = true
	if err := s.db.CreatePrivateGame(ctx, g); err != nil {
		return game.Info{}, err
	}

	tbl := s.AddTable(game.Config{
		ID:         g.ID,
		Name:       g.Name,
		SmallBlind: g.SmallBlind,
		BigBlind:   g.BigBlind,
		MinBuyIn:   g.MinBuyIn,
		MaxBuyIn:   g.MaxBuyIn,
		MaxSeats:   g.MaxSeats,
		Private:    true,
		CreatorID:  creatorID,
		Password:   g.Password,
	})
	return tbl.Info(), nil
}

func (s *Service) friendGameByName(name string) *game.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tbl := range s.tables {
		cfg := tbl.Config()
		if cfg.Private && cfg.Name == name {
			return tbl
		}
	}
	return nil
}

// JoinFriendGame seats the user at a private table after checking its
// password.
func (s *Service) JoinFriendGame(ctx context.Context, userID int64, username, name, password string, buyIn money.Cents) (game.Snapshot, error) {
	if s.settings.MaintenanceMode() {
		return game.Snapshot{}, ErrMaintenanceMode
	}
	tbl := s.friendGameByName(name)
	if tbl == nil {
		return game.Snapshot{}, ErrTableNotFound
	}
	if cfg := tbl.Config(); cfg.Password != "" && cfg.Password != password {
		return game.Snapshot{}, ErrWrongPassword
	}
	return s.seat(ctx, tbl, userID, username, buyIn)
}

// DeleteFriendGame closes a private table. Only its creator may do so.
func (s *Service) DeleteFriendGame(ctx context.Context, userID int64, tableID string) error {
	tbl := s.table(tableID)
	if tbl == nil || !tbl.Config().Private {
		return ErrTableNotFound
	}
	if tbl.Config().CreatorID != userID {
		return ErrNotCreator
	}
	if err := s.db.SetPrivateGameActive(ctx, tableID, false); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return s.RemoveTable(ctx, tableID)
}

// RestoreFriendGames registers tables for every active private game in
// the store, typically at startup.
func (s *Service) RestoreFriendGames(ctx context.Context) error {
	games, err := s.db.ActivePrivateGames(ctx)
	if err != nil {
		return err
	}
	for _, g := range games {
		s.AddTable(game.Config{
			ID:         g.ID,
			Name:       g.Name,
			SmallBlind: g.SmallBlind,
			BigBlind:   g.BigBlind,
			MinBuyIn:   g.MinBuyIn,
			MaxBuyIn:   g.MaxBuyIn,
			MaxSeats:   g.MaxSeats,
			Private:    true,
			CreatorID:  g.CreatorID,
			Password:   g.Password,
		})
	}
	return nil
}

// --- game actions ---

// HandleGameAction applies a betting action from the user at their table.
// For raises, amount is the new per-street total.
func (s *Service) HandleGameAction(userID int64, action game.Action, amount money.Cents) error {
	tbl := s.tableWithPlayer(userID)
	if tbl == nil {
		return ErrTableNotFound
	}
	return tbl.HandleAction(userID, action, amount)
}

// SitOut marks the user sitting out at their table.
func (s *Service) SitOut(userID int64) error {
	tbl := s.tableWithPlayer(userID)
	if tbl == nil {
		return ErrTableNotFound
	}
	return tbl.SitOut(userID)
}

// SitIn marks the user active again.
func (s *Service) SitIn(userID int64) error {
	tbl := s.tableWithPlayer(userID)
	if tbl == nil {
		return ErrTableNotFound
	}
	return tbl.SitIn(userID)
}

// TableStateFor returns the user's redacted view of their table.
func (s *Service) TableStateFor(userID int64) (game.Snapshot, error) {
	tbl := s.tableWithPlayer(userID)
	if tbl == nil {
		return game.Snapshot{}, ErrTableNotFound
	}
	return tbl.SnapshotFor(userID), nil
}

// --- sessions ---

// BindSession registers the authenticated connection, evicting any
// previous session of the same user and rebinding a seat preserved by the
// reconnect grace window.
func (s *Service) BindSession(userID int64, conn *Connection) {
	evicted, rebindTable := s.sessions.Bind(userID, conn)
	if evicted != nil {
		evicted.Send(errorResponse("", "logged in from another connection"))
		evicted.Close()
	}
	if rebindTable != "" {
		if tbl := s.table(rebindTable); tbl != nil {
			tbl.SetConnected(userID, true)
		}
	}
}

// DropSession handles a connection teardown for a logged-in user. A
// seated player keeps their seat, flagged disconnected, for the grace
// window.
func (s *Service) DropSession(userID int64, conn *Connection) {
	s.sessions.Unbind(userID, conn)
	if tbl := s.tableWithPlayer(userID); tbl != nil {
		tbl.SetConnected(userID, false)
		s.sessions.StartGrace(userID, tbl.ID())
	}
}

// --- fan-out ---

// broadcast delivers per-viewer snapshots. Called by tables under their
// lock, so it only enqueues onto connection send buffers.
func (s *Service) broadcast(tableID string, snapshots map[int64]game.Snapshot) {
	for userID, snap := range snapshots {
		conn := s.sessions.ConnFor(userID)
		if conn == nil {
			continue
		}
		msg := newResponse("table_update", "")
		msg["table_state"] = snap
		conn.Send(msg)
	}
}

// Chat relays a chat line to everyone seated at the sender's table.
func (s *Service) Chat(userID int64, username, message string) error {
	tbl := s.tableWithPlayer(userID)
	if tbl == nil {
		return ErrTableNotFound
	}
	push := newResponse("chat_message", "")
	push["table_id"] = tbl.ID()
	push["user_id"] = userID
	push["username"] = username
	push["message"] = message
	for _, p := range tbl.SnapshotFor(userID).Players {
		if conn := s.sessions.ConnFor(p.UserID); conn != nil {
			conn.Send(push)
		}
	}
	return nil
}

// Notify pushes a system notification to every live connection.
func (s *Service) Notify(message string) int {
	push := newResponse("notification", "")
	push["message"] = message
	conns := s.sessions.Connections()
	for _, conn := range conns {
		conn.Send(push)
	}
	return len(conns)
}

// handFinished persists a completed hand. Runs on its own goroutine,
// never under the table lock.
func (s *Service) handFinished(result game.HandResult) {
	s.metrics.HandsPlayed.Inc()
	s.metrics.PotAwarded.Add(float64(result.Pot))

	outcomes := make([]store.HandOutcome, 0, len(result.Players))
	for _, p := range result.Players {
		outcomes = append(outcomes, store.HandOutcome{UserID: p.UserID, Won: p.Won, Net: p.Net})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.db.RecordHand(ctx, result.TableID, result.HandID, result.Pot, outcomes); err != nil {
		s.logger.Error("recording hand failed", "table", result.TableID, "hand", result.HandID, "error", err)
	}
}
