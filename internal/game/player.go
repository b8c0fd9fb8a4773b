package game

import (
	"github.com/cardroomlabs/cardroom/internal/deck"
	"github.com/cardroomlabs/cardroom/internal/money"
)

// Player is a seated participant. Owned exclusively by its Table while
// seated; all access goes through the table lock.
type Player struct {
	UserID   int64
	Username string
	Seat     int

	Stack     money.Cents
	HoleCards []deck.Card

	CurrentBet money.Cents // committed this street
	TotalBet   money.Cents // committed this hand, drives side-pot layering

	Folded     bool
	AllIn      bool
	SittingOut bool
	Connected  bool

	LastAction string
}

// InHand reports whether the player was dealt into the current hand.
func (p *Player) InHand() bool {
	return len(p.HoleCards) > 0 || p.Folded || p.TotalBet > 0
}

// CanAct reports whether the player is still eligible to act this street.
func (p *Player) CanAct() bool {
	return !p.Folded && !p.AllIn && len(p.HoleCards) > 0
}

func (p *Player) resetForHand() {
	p.HoleCards = nil
	p.CurrentBet = 0
	p.TotalBet = 0
	p.Folded = false
	p.AllIn = false
	p.LastAction = ""
}
