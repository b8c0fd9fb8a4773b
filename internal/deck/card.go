package deck

import "fmt"

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the single-letter wire code of the suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "s"
	case Hearts:
		return "h"
	case Diamonds:
		return "d"
	case Clubs:
		return "c"
	default:
		return "?"
	}
}

// Rank represents a card rank. Aces are high (14) except for wheel
// straight detection in the evaluator.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Two:
		return "2"
	case Three:
		return "3"
	case Four:
		return "4"
	case Five:
		return "5"
	case Six:
		return "6"
	case Seven:
		return "7"
	case Eight:
		return "8"
	case Nine:
		return "9"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		return "?"
	}
}

// Card represents a playing card. Immutable.
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the string representation of a card (e.g. "As")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// Value returns the numeric value of the card for comparison
func (c Card) Value() int {
	return int(c.Rank)
}

// Wire is the JSON shape cards take on the client protocol.
type Wire struct {
	Rank  string `json:"rank"`
	Suit  string `json:"suit"`
	Value int    `json:"value"`
}

// Wire returns the wire representation of the card.
func (c Card) Wire() Wire {
	return Wire{Rank: c.Rank.String(), Suit: c.Suit.String(), Value: c.Value()}
}

// HiddenWire is the wire form of a face-down card.
func HiddenWire() Wire {
	return Wire{Rank: "?", Suit: "?", Value: 0}
}

// MustParse parses a two-character card string such as "As" or "Th".
// It panics on malformed input and is intended for tests and fixtures.
func MustParse(s string) Card {
	if len(s) != 2 {
		panic("deck: malformed card " + s)
	}
	var rank Rank
	for r := Two; r <= Ace; r++ {
		if r.String() == string(s[0]) {
			rank = r
			break
		}
	}
	if rank == 0 {
		panic("deck: malformed rank in " + s)
	}
	var suit Suit
	switch s[1] {
	case 's':
		suit = Spades
	case 'h':
		suit = Hearts
	case 'd':
		suit = Diamonds
	case 'c':
		suit = Clubs
	default:
		panic("deck: malformed suit in " + s)
	}
	return NewCard(suit, rank)
}
