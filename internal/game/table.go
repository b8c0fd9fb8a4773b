package game

import (
	"io"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomlabs/cardroom/internal/deck"
	"github.com/cardroomlabs/cardroom/internal/evaluator"
	"github.com/cardroomlabs/cardroom/internal/handid"
	"github.com/cardroomlabs/cardroom/internal/money"
	"github.com/cardroomlabs/cardroom/internal/randutil"
)

// restartDelay is how long after showdown the next hand is dealt.
const restartDelay = 8 * time.Second

// categoryFoldWin labels a pot won because everyone else folded.
const categoryFoldWin = "Opponents Folded"

// Config describes a table. Immutable after creation.
type Config struct {
	ID         string
	Name       string
	SmallBlind money.Cents
	BigBlind   money.Cents
	MinBuyIn   money.Cents
	MaxBuyIn   money.Cents
	MaxSeats   int
	Private    bool
	CreatorID  int64
	Password   string
}

// PlayerInfo identifies a player joining a table.
type PlayerInfo struct {
	UserID   int64
	Username string
}

// WinnerInfo records one winner of the last hand.
type WinnerInfo struct {
	UserID   int64
	Username string
	Amount   money.Cents
	Category string
}

// HandPlayerResult is a participant's outcome in a finished hand.
type HandPlayerResult struct {
	UserID   int64
	Username string
	Won      money.Cents
	Net      money.Cents
}

// HandResult summarises a finished hand for persistence and statistics.
type HandResult struct {
	TableID string
	HandID  string
	Pot     money.Cents
	Winners []WinnerInfo
	Players []HandPlayerResult
}

// NotifyFunc receives per-viewer snapshots whenever table state changes.
// It is called while the table lock is held, so implementations must only
// enqueue; they must not call back into the table.
type NotifyFunc func(tableID string, snapshots map[int64]Snapshot)

// Table is the per-table hand engine. Every public operation acquires the
// table's exclusive lock for its whole duration, including the broadcast
// phase, making all state transitions linearizable per table.
type Table struct {
	mu  sync.Mutex
	cfg Config

	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand

	seats map[int]*Player

	street      Street
	dealerSeat  int
	currentSeat int
	community   []deck.Card
	pot         money.Cents
	currentBet  money.Cents
	minRaise    money.Cents

	handID    string
	handSeats []int // seats dealt in, clockwise from dealer+1
	acted     map[int]bool
	dk        *deck.Deck
	winners   []WinnerInfo

	// Chips contributed by players who left mid-hand. Stays in the pot
	// and is folded into the bottom layer at showdown.
	deadChips money.Cents

	turnSeq      int
	turnTimer    *quartz.Timer
	restartTimer *quartz.Timer
	closed       bool

	turnTimeout    func() time.Duration
	newDeck        func() *deck.Deck
	notify         NotifyFunc
	onHandFinished func(HandResult)
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the table logger.
func WithLogger(logger *log.Logger) Option {
	return func(t *Table) { t.logger = logger.WithPrefix("table").With("table", t.cfg.ID) }
}

// WithClock injects the clock used for the turn and restart timers.
func WithClock(clock quartz.Clock) Option {
	return func(t *Table) { t.clock = clock }
}

// WithRNG injects the shuffle RNG for deterministic deals.
func WithRNG(rng *rand.Rand) Option {
	return func(t *Table) { t.rng = rng }
}

// WithDeckFactory overrides deck creation entirely. Used by tests that
// script exact deals.
func WithDeckFactory(f func() *deck.Deck) Option {
	return func(t *Table) { t.newDeck = f }
}

// WithTurnTimeout sets the provider of the per-turn action timeout. A
// provider (rather than a duration) lets admin config changes apply to the
// next turn without restarting tables.
func WithTurnTimeout(f func() time.Duration) Option {
	return func(t *Table) { t.turnTimeout = f }
}

// WithNotify sets the snapshot fan-out callback.
func WithNotify(f NotifyFunc) Option {
	return func(t *Table) { t.notify = f }
}

// WithHandFinished sets the hand persistence hook. It is dispatched on its
// own goroutine so the table lock is never held across database writes.
func WithHandFinished(f func(HandResult)) Option {
	return func(t *Table) { t.onHandFinished = f }
}

// New creates a table in the waiting state.
func New(cfg Config, opts ...Option) *Table {
	t := &Table{
		cfg:         cfg,
		logger:      log.New(io.Discard),
		clock:       quartz.NewReal(),
		seats:       make(map[int]*Player),
		street:      Waiting,
		dealerSeat:  -1,
		currentSeat: -1,
		acted:       make(map[int]bool),
		turnTimeout: func() time.Duration { return 30 * time.Second },
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.rng == nil {
		t.rng = randutil.New(time.Now().UnixNano())
	}
	if t.newDeck == nil {
		t.newDeck = func() *deck.Deck { return deck.New(t.rng) }
	}
	return t
}

// Config returns the table configuration.
func (t *Table) Config() Config {
	return t.cfg
}

// ID returns the table identifier.
func (t *Table) ID() string {
	return t.cfg.ID
}

// Close cancels outstanding timers. The table must not be used afterwards.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.cancelTurnTimerLocked()
	if t.restartTimer != nil {
		t.restartTimer.Stop()
		t.restartTimer = nil
	}
}

// PlayerCount returns the number of occupied seats.
func (t *Table) PlayerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seats)
}

// HasPlayer reports whether the user is seated.
func (t *Table) HasPlayer(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playerLocked(userID) != nil
}

// AddPlayer seats a player with the given buy-in. A negative seat requests
// the lowest free seat. If the table was waiting and two or more eligible
// players are now seated, a hand starts immediately.
func (t *Table) AddPlayer(info PlayerInfo, buyIn money.Cents, seat int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.playerLocked(info.UserID) != nil {
		return 0, ErrAlreadySeated
	}
	if len(t.seats) >= t.cfg.MaxSeats {
		return 0, ErrTableFull
	}
	if seat >= 0 {
		if seat >= t.cfg.MaxSeats {
			return 0, ErrSeatTaken
		}
		if _, occupied := t.seats[seat]; occupied {
			return 0, ErrSeatTaken
		}
	} else {
		seat = -1
		for s := 0; s < t.cfg.MaxSeats; s++ {
			if _, occupied := t.seats[s]; !occupied {
				seat = s
				break
			}
		}
		if seat < 0 {
			return 0, ErrTableFull
		}
	}

	t.seats[seat] = &Player{
		UserID:    info.UserID,
		Username:  info.Username,
		Seat:      seat,
		Stack:     buyIn,
		Connected: true,
	}
	t.logger.Info("player seated", "user", info.Username, "seat", seat, "buyIn", buyIn)

	if t.street == Waiting && t.eligibleCountLocked() >= 2 {
		t.startHandLocked()
	}
	t.notifyLocked()
	return seat, nil
}

// RemovePlayer unseats a player and returns their remaining stack so the
// caller can credit the wallet. A player leaving a live hand is folded
// first; chips already committed stay in the pot.
func (t *Table) RemovePlayer(userID int64) (money.Cents, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.playerLocked(userID)
	if p == nil {
		return 0, ErrNotSeated
	}

	if t.street.IsBetting() && p.InHand() && !p.Folded {
		t.forceFoldLocked(p.Seat)
	}

	refund := p.Stack
	if t.street.IsBetting() {
		// Chips the leaver already committed stay in the pot as dead
		// money for the eventual showdown layering.
		t.deadChips += p.TotalBet
	}
	delete(t.seats, p.Seat)
	t.removeHandSeatLocked(p.Seat)
	t.logger.Info("player left", "user", p.Username, "seat", p.Seat, "refund", refund)

	if t.street == Waiting || t.eligibleCountLocked() == 0 {
		t.resetToWaitingLocked()
	}
	t.notifyLocked()
	return refund, nil
}

// HandleAction applies a player action. For raises, level is the new
// per-street total the player is raising to.
func (t *Table) HandleAction(userID int64, action Action, level money.Cents) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.playerLocked(userID)
	if p == nil {
		return ErrNotSeated
	}
	if !t.street.IsBetting() {
		return ErrNoActiveHand
	}
	if p.Seat != t.currentSeat {
		return ErrNotYourTurn
	}
	if !p.CanAct() {
		return ErrCannotAct
	}

	if err := t.applyActionLocked(p, action, level); err != nil {
		return err
	}
	t.acted[p.Seat] = true
	t.afterActionLocked()
	t.notifyLocked()
	return nil
}

// SitOut marks the player sitting out. If they hold the action in a live
// hand the engine treats them as having folded.
func (t *Table) SitOut(userID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.playerLocked(userID)
	if p == nil {
		return ErrNotSeated
	}
	p.SittingOut = true
	if t.street.IsBetting() && p.Seat == t.currentSeat && p.CanAct() {
		t.forceFoldLocked(p.Seat)
	}
	t.notifyLocked()
	return nil
}

// SitIn clears the sitting-out flag. If the table was waiting and enough
// players are now eligible, a hand starts.
func (t *Table) SitIn(userID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.playerLocked(userID)
	if p == nil {
		return ErrNotSeated
	}
	p.SittingOut = false
	if t.street == Waiting && t.eligibleCountLocked() >= 2 {
		t.startHandLocked()
	}
	t.notifyLocked()
	return nil
}

// SetConnected records connection state. A disconnected player is flagged
// sitting out so the hand can advance; their seat, stack and hole cards are
// preserved for reconnection.
func (t *Table) SetConnected(userID int64, connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.playerLocked(userID)
	if p == nil {
		return
	}
	p.Connected = connected
	if !connected {
		p.SittingOut = true
		if t.street.IsBetting() && p.Seat == t.currentSeat && p.CanAct() {
			t.autoActLocked(p.Seat)
		}
	}
	t.notifyLocked()
}

// --- hand lifecycle ---

func (t *Table) startHandLocked() {
	if t.restartTimer != nil {
		t.restartTimer.Stop()
		t.restartTimer = nil
	}

	eligible := t.eligibleSeatsLocked()
	if len(eligible) < 2 {
		t.resetToWaitingLocked()
		return
	}

	t.handID = handid.New()
	t.winners = nil
	t.community = nil
	t.pot = 0
	t.deadChips = 0
	t.currentBet = 0
	t.minRaise = t.cfg.BigBlind
	t.acted = make(map[int]bool)
	t.dk = t.newDeck()
	for _, p := range t.seats {
		p.resetForHand()
	}

	t.advanceDealerLocked()

	// Hand order is clockwise from the seat after the dealer; the dealer
	// acts last on post-flop streets.
	t.handSeats = t.handSeats[:0]
	for i := 1; i <= t.cfg.MaxSeats; i++ {
		s := (t.dealerSeat + i) % t.cfg.MaxSeats
		if p, ok := t.seats[s]; ok && !p.SittingOut && p.Stack > 0 {
			t.handSeats = append(t.handSeats, s)
		}
	}

	for _, s := range t.handSeats {
		t.seats[s].HoleCards = t.dk.Deal(2)
	}

	// Heads-up the dealer posts the small blind; otherwise the two seats
	// after the dealer post in order.
	var sbSeat, bbSeat, firstSeat int
	if len(t.handSeats) == 2 {
		sbSeat = t.dealerSeat
		bbSeat = t.handSeats[0]
		firstSeat = sbSeat
	} else {
		sbSeat = t.handSeats[0]
		bbSeat = t.handSeats[1]
		firstSeat = t.handSeats[2]
	}
	t.placeLocked(t.seats[sbSeat], t.cfg.SmallBlind, labelSmallBlind)
	t.placeLocked(t.seats[bbSeat], t.cfg.BigBlind, labelBigBlind)
	t.currentBet = t.cfg.BigBlind

	t.street = Preflop
	t.logger.Info("hand started", "hand", t.handID, "dealer", t.dealerSeat, "players", len(t.handSeats))
	t.setTurnLocked(firstSeat)
}

// advanceDealerLocked moves the dealer button to the next eligible seat
// clockwise from the previous dealer seat, regardless of whether the
// previous seat is still occupied.
func (t *Table) advanceDealerLocked() {
	start := t.dealerSeat
	if start < 0 {
		start = t.cfg.MaxSeats - 1
	}
	for i := 1; i <= t.cfg.MaxSeats; i++ {
		s := (start + i) % t.cfg.MaxSeats
		if p, ok := t.seats[s]; ok && !p.SittingOut && p.Stack > 0 {
			t.dealerSeat = s
			return
		}
	}
}

func (t *Table) resetToWaitingLocked() {
	t.street = Waiting
	t.community = nil
	t.pot = 0
	t.deadChips = 0
	t.currentBet = 0
	t.handSeats = t.handSeats[:0]
	t.acted = make(map[int]bool)
	t.cancelTurnTimerLocked()
	t.currentSeat = -1
	for _, p := range t.seats {
		p.resetForHand()
	}
}

// placeLocked moves min(amount, stack) from the player's stack into the pot.
func (t *Table) placeLocked(p *Player, amount money.Cents, label string) money.Cents {
	actual := amount
	if actual > p.Stack {
		actual = p.Stack
	}
	p.Stack -= actual
	p.CurrentBet += actual
	p.TotalBet += actual
	t.pot += actual
	p.LastAction = label
	if p.Stack == 0 {
		p.AllIn = true
		p.LastAction = labelAllIn
	}
	return actual
}

func (t *Table) applyActionLocked(p *Player, action Action, level money.Cents) error {
	switch action {
	case Fold:
		p.Folded = true
		p.HoleCards = nil
		p.LastAction = labelFold

	case Check:
		if p.CurrentBet != t.currentBet {
			return ErrCannotCheck
		}
		p.LastAction = labelCheck

	case Call:
		if p.CurrentBet >= t.currentBet {
			return ErrNothingToCall
		}
		t.placeLocked(p, t.currentBet-p.CurrentBet, labelCall)

	case Raise:
		if level <= t.currentBet {
			return ErrRaiseTooSmall
		}
		need := level - p.CurrentBet
		if need > p.Stack {
			return ErrRaiseTooSmall
		}
		shortAllIn := need == p.Stack && level-t.currentBet < t.minRaise
		if level-t.currentBet < t.minRaise && !shortAllIn {
			return ErrRaiseTooSmall
		}
		t.placeLocked(p, need, labelRaise)
		if shortAllIn {
			// An all-in for less than a full raise does not reopen
			// the action for players who already matched.
			t.currentBet = level
		} else {
			t.minRaise = level - t.currentBet
			t.currentBet = level
			t.acted = map[int]bool{p.Seat: true}
		}

	default:
		return ErrCannotAct
	}
	return nil
}

func (t *Table) afterActionLocked() {
	if t.survivorCountLocked() == 1 {
		t.finishHandLocked()
		return
	}
	if t.roundCompleteLocked() {
		t.endBettingRoundLocked()
		return
	}
	t.setTurnLocked(t.nextToActLocked(t.currentSeat))
}

func (t *Table) roundCompleteLocked() bool {
	for _, s := range t.handSeats {
		p := t.seats[s]
		if p == nil || !p.CanAct() {
			continue
		}
		if p.CurrentBet != t.currentBet || !t.acted[s] {
			return false
		}
	}
	return true
}

// nextToActLocked returns the first seat after the given one, in hand
// order, whose player can still act. Returns -1 if none can.
func (t *Table) nextToActLocked(after int) int {
	n := len(t.handSeats)
	if n == 0 {
		return -1
	}
	start := 0
	for i, s := range t.handSeats {
		if s == after {
			start = i + 1
			break
		}
	}
	for i := 0; i < n; i++ {
		s := t.handSeats[(start+i)%n]
		if p := t.seats[s]; p != nil && p.CanAct() {
			return s
		}
	}
	return -1
}

// firstToActLocked returns the first actionable seat clockwise from the
// dealer, for post-flop streets.
func (t *Table) firstToActLocked() int {
	for _, s := range t.handSeats {
		if p := t.seats[s]; p != nil && p.CanAct() {
			return s
		}
	}
	return -1
}

func (t *Table) endBettingRoundLocked() {
	for _, s := range t.handSeats {
		if p := t.seats[s]; p != nil {
			p.CurrentBet = 0
			p.LastAction = ""
		}
	}
	t.currentBet = 0
	t.minRaise = t.cfg.BigBlind
	t.acted = make(map[int]bool)

	switch t.street {
	case Preflop:
		t.street = Flop
		t.community = append(t.community, t.dk.Deal(3)...)
	case Flop:
		t.street = Turn
		t.community = append(t.community, t.dk.Deal(1)...)
	case Turn:
		t.street = River
		t.community = append(t.community, t.dk.Deal(1)...)
	case River:
		t.finishHandLocked()
		return
	default:
		return
	}

	// With at most one player able to act there is no more betting; run
	// the board out to showdown.
	first := t.firstToActLocked()
	if first < 0 || t.actionableCountLocked() <= 1 {
		t.endBettingRoundLocked()
		return
	}
	t.setTurnLocked(first)
}

func (t *Table) finishHandLocked() {
	t.cancelTurnTimerLocked()
	t.currentSeat = -1
	t.street = Showdown

	potTotal := t.pot
	awards := make(map[int]money.Cents)
	categories := make(map[int]string)

	survivors := t.survivorSeatsLocked()
	switch {
	case len(survivors) == 0:
		// Everyone left mid-hand; nothing to award.
	case len(survivors) == 1:
		awards[survivors[0]] = t.pot
		categories[survivors[0]] = categoryFoldWin
	default:
		scores := make(map[int]evaluator.Result, len(survivors))
		for _, s := range survivors {
			res, err := evaluator.Evaluate(append(append([]deck.Card{}, t.seats[s].HoleCards...), t.community...))
			if err != nil {
				t.logger.Error("hand evaluation failed", "hand", t.handID, "seat", s, "error", err)
				continue
			}
			scores[s] = res
		}

		players := t.handPlayersLocked()
		layers := buildPotLayers(players, t.handSeats)
		if len(layers) > 0 && t.deadChips > 0 {
			layers[0].Amount += t.deadChips
		}
		for _, layer := range layers {
			var best int64
			var layerWinners []int
			for _, s := range layer.Eligible {
				res, ok := scores[s]
				if !ok {
					continue
				}
				if res.Score > best {
					best = res.Score
					layerWinners = []int{s}
				} else if res.Score == best {
					layerWinners = append(layerWinners, s)
				}
			}
			for seat, amount := range splitLayer(layer.Amount, layerWinners) {
				awards[seat] += amount
				categories[seat] = scores[seat].Category.String()
			}
		}
	}

	t.winners = t.winners[:0]
	for _, s := range t.handSeats {
		amount, won := awards[s]
		if !won {
			continue
		}
		p := t.seats[s]
		p.Stack += amount
		t.winners = append(t.winners, WinnerInfo{
			UserID:   p.UserID,
			Username: p.Username,
			Amount:   amount,
			Category: categories[s],
		})
	}
	t.pot = 0

	t.logger.Info("hand finished", "hand", t.handID, "pot", potTotal, "winners", len(t.winners))

	if t.onHandFinished != nil {
		result := HandResult{
			TableID: t.cfg.ID,
			HandID:  t.handID,
			Pot:     potTotal,
			Winners: append([]WinnerInfo{}, t.winners...),
		}
		for _, s := range t.handSeats {
			p := t.seats[s]
			result.Players = append(result.Players, HandPlayerResult{
				UserID:   p.UserID,
				Username: p.Username,
				Won:      awards[s],
				Net:      awards[s] - p.TotalBet,
			})
		}
		// Persistence must not run under the table lock.
		go t.onHandFinished(result)
	}

	t.restartTimer = t.clock.AfterFunc(restartDelay, t.restartFired)
}

func (t *Table) restartFired() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.street != Showdown {
		return
	}
	t.startHandLocked()
	t.notifyLocked()
}

// --- turn management ---

func (t *Table) setTurnLocked(seat int) {
	t.currentSeat = seat
	t.turnSeq++
	t.cancelTurnTimerLocked()
	if seat < 0 || !t.street.IsBetting() {
		return
	}
	p := t.seats[seat]
	if p == nil {
		return
	}
	if p.SittingOut {
		// Sitting-out players do not hold up the hand.
		t.autoActLocked(seat)
		return
	}
	seq := t.turnSeq
	t.turnTimer = t.clock.AfterFunc(t.turnTimeout(), func() { t.turnTimerFired(seq) })
}

func (t *Table) cancelTurnTimerLocked() {
	if t.turnTimer != nil {
		t.turnTimer.Stop()
		t.turnTimer = nil
	}
}

// turnTimerFired handles turn timer expiry. The sequence number makes
// cancellation race-free: if the player acted (or the street ended) before
// the callback ran, the sequence has moved on and expiry is a no-op.
func (t *Table) turnTimerFired(seq int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || seq != t.turnSeq || !t.street.IsBetting() || t.currentSeat < 0 {
		return
	}
	p := t.seats[t.currentSeat]
	if p == nil || !p.CanAct() {
		return
	}
	t.logger.Info("turn timed out", "hand", t.handID, "user", p.Username)
	p.SittingOut = true
	t.autoActLocked(p.Seat)
	t.notifyLocked()
}

// autoActLocked performs the forced action for the seat holding the action:
// check when legal, otherwise fold.
func (t *Table) autoActLocked(seat int) {
	p := t.seats[seat]
	if p == nil {
		return
	}
	if p.CurrentBet == t.currentBet {
		_ = t.applyActionLocked(p, Check, 0)
	} else {
		_ = t.applyActionLocked(p, Fold, 0)
	}
	t.acted[seat] = true
	t.afterActionLocked()
}

// forceFoldLocked folds the seat immediately, regardless of turn order,
// and advances the hand if needed. Used for leaves and voluntary sit-outs
// while holding the action.
func (t *Table) forceFoldLocked(seat int) {
	p := t.seats[seat]
	if p == nil || p.Folded {
		return
	}
	p.Folded = true
	p.HoleCards = nil
	p.LastAction = labelFold
	t.acted[seat] = true

	if t.survivorCountLocked() == 1 {
		t.finishHandLocked()
		return
	}
	if seat == t.currentSeat {
		if t.roundCompleteLocked() {
			t.endBettingRoundLocked()
		} else {
			t.setTurnLocked(t.nextToActLocked(seat))
		}
		return
	}
	if t.roundCompleteLocked() {
		t.endBettingRoundLocked()
	}
}

// --- helpers ---

func (t *Table) playerLocked(userID int64) *Player {
	for _, p := range t.seats {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (t *Table) eligibleCountLocked() int {
	return len(t.eligibleSeatsLocked())
}

func (t *Table) eligibleSeatsLocked() []int {
	var out []int
	for s := 0; s < t.cfg.MaxSeats; s++ {
		if p, ok := t.seats[s]; ok && !p.SittingOut && p.Stack > 0 {
			out = append(out, s)
		}
	}
	return out
}

func (t *Table) survivorCountLocked() int {
	return len(t.survivorSeatsLocked())
}

// survivorSeatsLocked returns the seats still contesting the pot, in hand
// order.
func (t *Table) survivorSeatsLocked() []int {
	var out []int
	for _, s := range t.handSeats {
		if p := t.seats[s]; p != nil && !p.Folded {
			out = append(out, s)
		}
	}
	return out
}

func (t *Table) actionableCountLocked() int {
	n := 0
	for _, s := range t.handSeats {
		if p := t.seats[s]; p != nil && p.CanAct() {
			n++
		}
	}
	return n
}

func (t *Table) handPlayersLocked() []*Player {
	out := make([]*Player, 0, len(t.handSeats))
	for _, s := range t.handSeats {
		if p := t.seats[s]; p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (t *Table) removeHandSeatLocked(seat int) {
	for i, s := range t.handSeats {
		if s == seat {
			t.handSeats = append(t.handSeats[:i], t.handSeats[i+1:]...)
			return
		}
	}
}

func (t *Table) notifyLocked() {
	if t.notify == nil {
		return
	}
	snaps := make(map[int64]Snapshot, len(t.seats))
	for _, p := range t.seats {
		snaps[p.UserID] = t.snapshotLocked(p.UserID)
	}
	t.notify(t.cfg.ID, snaps)
}
