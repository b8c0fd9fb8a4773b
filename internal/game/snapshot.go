package game

import (
	"sort"

	"github.com/cardroomlabs/cardroom/internal/deck"
)

// SnapshotPlayer is the wire form of a seated player in a table snapshot.
type SnapshotPlayer struct {
	UserID       int64       `json:"user_id"`
	Username     string      `json:"username"`
	Chips        float64     `json:"chips"`
	Position     int         `json:"position"`
	IsSittingOut bool        `json:"is_sitting_out"`
	CurrentBet   float64     `json:"current_bet"`
	Cards        []deck.Wire `json:"cards"`
	Folded       bool        `json:"folded"`
	AllIn        bool        `json:"all_in"`
	LastAction   string      `json:"last_action"`
}

// SnapshotWinner is the wire form of a hand winner.
type SnapshotWinner struct {
	UserID   int64   `json:"user_id"`
	Username string  `json:"username"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
}

// Snapshot is a per-viewer view of table state. Two snapshots of the same
// state for different viewers differ only in the players' cards arrays.
type Snapshot struct {
	TableID        string           `json:"table_id"`
	Name           string           `json:"name"`
	SmallBlind     float64          `json:"small_blind"`
	BigBlind       float64          `json:"big_blind"`
	MinBuyIn       float64          `json:"min_buy_in"`
	MaxBuyIn       float64          `json:"max_buy_in"`
	MaxPlayers     int              `json:"max_players"`
	Players        []SnapshotPlayer `json:"players"`
	DealerPosition int              `json:"dealer_position"`
	CurrentPlayer  int              `json:"current_player"`
	Pot            float64          `json:"pot"`
	CommunityCards []deck.Wire      `json:"community_cards"`
	GamePhase      string           `json:"game_phase"`
	CurrentBet     float64          `json:"current_bet"`
	Winners        []SnapshotWinner `json:"winners"`
}

// SnapshotFor returns the viewer's redacted view of the table. A player's
// hole cards are visible only to that player, or to everyone at showdown if
// the player did not fold. Pure: no state is mutated.
func (t *Table) SnapshotFor(viewerID int64) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(viewerID)
}

func (t *Table) snapshotLocked(viewerID int64) Snapshot {
	snap := Snapshot{
		TableID:        t.cfg.ID,
		Name:           t.cfg.Name,
		SmallBlind:     t.cfg.SmallBlind.Float64(),
		BigBlind:       t.cfg.BigBlind.Float64(),
		MinBuyIn:       t.cfg.MinBuyIn.Float64(),
		MaxBuyIn:       t.cfg.MaxBuyIn.Float64(),
		MaxPlayers:     t.cfg.MaxSeats,
		DealerPosition: t.dealerSeat,
		CurrentPlayer:  t.currentSeat,
		Pot:            t.pot.Float64(),
		CommunityCards: make([]deck.Wire, 0, len(t.community)),
		GamePhase:      t.street.String(),
		CurrentBet:     t.currentBet.Float64(),
		Winners:        make([]SnapshotWinner, 0, len(t.winners)),
	}

	for _, c := range t.community {
		snap.CommunityCards = append(snap.CommunityCards, c.Wire())
	}
	for _, w := range t.winners {
		snap.Winners = append(snap.Winners, SnapshotWinner{
			UserID:   w.UserID,
			Username: w.Username,
			Amount:   w.Amount.Float64(),
			Category: w.Category,
		})
	}

	seats := make([]int, 0, len(t.seats))
	for s := range t.seats {
		seats = append(seats, s)
	}
	sort.Ints(seats)

	for _, s := range seats {
		p := t.seats[s]
		entry := SnapshotPlayer{
			UserID:       p.UserID,
			Username:     p.Username,
			Chips:        p.Stack.Float64(),
			Position:     p.Seat,
			IsSittingOut: p.SittingOut,
			CurrentBet:   p.CurrentBet.Float64(),
			Cards:        make([]deck.Wire, 0, len(p.HoleCards)),
			Folded:       p.Folded,
			AllIn:        p.AllIn,
			LastAction:   p.LastAction,
		}
		visible := p.UserID == viewerID || (t.street == Showdown && !p.Folded)
		for _, c := range p.HoleCards {
			if visible {
				entry.Cards = append(entry.Cards, c.Wire())
			} else {
				entry.Cards = append(entry.Cards, deck.HiddenWire())
			}
		}
		snap.Players = append(snap.Players, entry)
	}

	return snap
}

// Info is a lobby listing entry.
type Info struct {
	TableID     string  `json:"table_id"`
	Name        string  `json:"name"`
	SmallBlind  float64 `json:"small_blind"`
	BigBlind    float64 `json:"big_blind"`
	MinBuyIn    float64 `json:"min_buy_in"`
	MaxBuyIn    float64 `json:"max_buy_in"`
	MaxPlayers  int     `json:"max_players"`
	PlayerCount int     `json:"player_count"`
	Private     bool    `json:"private"`
	GamePhase   string  `json:"game_phase"`
}

// Info returns the lobby listing entry for the table.
func (t *Table) Info() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Info{
		TableID:     t.cfg.ID,
		Name:        t.cfg.Name,
		SmallBlind:  t.cfg.SmallBlind.Float64(),
		BigBlind:    t.cfg.BigBlind.Float64(),
		MinBuyIn:    t.cfg.MinBuyIn.Float64(),
		MaxBuyIn:    t.cfg.MaxBuyIn.Float64(),
		MaxPlayers:  t.cfg.MaxSeats,
		PlayerCount: len(t.seats),
		Private:     t.cfg.Private,
		GamePhase:   t.street.String(),
	}
}
