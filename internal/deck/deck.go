package deck

import rand "math/rand/v2"

// Deck represents a shuffled deck of playing cards. A fresh deck is created
// for every hand.
type Deck struct {
	cards []Card
}

// New creates a shuffled 52-card deck using the provided RNG. Injecting the
// RNG keeps deals deterministic under test seeds.
func New(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

// Stacked returns an unshuffled deck with the given cards on top, in order.
// Used by tests that need known deals.
func Stacked(top ...Card) *Deck {
	seen := make(map[Card]bool, len(top))
	cards := make([]Card, 0, 52)
	cards = append(cards, top...)
	for _, c := range top {
		seen[c] = true
	}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			c := NewCard(suit, rank)
			if !seen[c] {
				cards = append(cards, c)
			}
		}
	}
	return &Deck{cards: cards}
}

// Deal pops n cards from the top of the deck.
func (d *Deck) Deal(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	cards := d.cards[:n]
	d.cards = d.cards[n:]
	return cards
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
