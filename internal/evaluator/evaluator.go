// Package evaluator ranks seven-card Texas Hold'em hands. Scores are totally
// ordered across categories: each category occupies a disjoint numeric band
// and tie-break ranks are encoded lexicographically within the band.
package evaluator

import (
	"errors"
	"sort"

	"github.com/cardroomlabs/cardroom/internal/deck"
)

// ErrMalformedHand is returned when fewer than five cards are supplied.
var ErrMalformedHand = errors.New("evaluator: hand requires at least five cards")

// Category classifies a hand. Higher is better.
type Category int

const (
	HighCard Category = iota + 1
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the display label for the category.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// band separates category score ranges. The within-band encoding packs at
// most five ranks in base 100 (max 14*100^4+... < 1.5e9), so 1e10 keeps the
// bands disjoint.
const band = int64(10_000_000_000)

// Result is the outcome of evaluating a hand.
type Result struct {
	Score    int64
	Category Category
	// Ranks are the tie-break ranks in encoding order: primary rank(s)
	// first, then kickers descending.
	Ranks []int
}

// Evaluate scores the best five-card hand from the given cards (two hole
// cards plus three to five community cards).
func Evaluate(cards []deck.Card) (Result, error) {
	if len(cards) < 5 {
		return Result{}, ErrMalformedHand
	}

	rankCount := make(map[int]int)
	suitCount := make(map[deck.Suit]int)
	for _, c := range cards {
		rankCount[c.Value()]++
		suitCount[c.Suit]++
	}

	flushSuit, hasFlush := flushSuitOf(suitCount)

	var flushRanks []int
	if hasFlush {
		for _, c := range cards {
			if c.Suit == flushSuit {
				flushRanks = append(flushRanks, c.Value())
			}
		}
		sort.Sort(sort.Reverse(sort.IntSlice(flushRanks)))
	}

	distinct := distinctDesc(rankCount)

	if hasFlush {
		if high := straightHigh(dedupeDesc(flushRanks)); high > 0 {
			if high == int(deck.Ace) {
				return mkResult(RoyalFlush, []int{high}), nil
			}
			return mkResult(StraightFlush, []int{high}), nil
		}
	}

	// Group ranks by multiplicity, descending rank within each group.
	quads, trips, pairs := groupByCount(rankCount)

	if len(quads) > 0 {
		kicker := highestExcept(distinct, quads[0])
		return mkResult(FourOfAKind, []int{quads[0], kicker}), nil
	}

	if len(trips) > 0 && (len(pairs) > 0 || len(trips) > 1) {
		pair := 0
		if len(trips) > 1 {
			pair = trips[1]
		}
		if len(pairs) > 0 && pairs[0] > pair {
			pair = pairs[0]
		}
		return mkResult(FullHouse, []int{trips[0], pair}), nil
	}

	if hasFlush {
		return mkResult(Flush, flushRanks[:5]), nil
	}

	if high := straightHigh(distinct); high > 0 {
		return mkResult(Straight, []int{high}), nil
	}

	if len(trips) > 0 {
		kickers := topExcept(distinct, 2, trips[0])
		return mkResult(ThreeOfAKind, append([]int{trips[0]}, kickers...)), nil
	}

	if len(pairs) >= 2 {
		kicker := highestExcept(distinct, pairs[0], pairs[1])
		return mkResult(TwoPair, []int{pairs[0], pairs[1], kicker}), nil
	}

	if len(pairs) == 1 {
		kickers := topExcept(distinct, 3, pairs[0])
		return mkResult(OnePair, append([]int{pairs[0]}, kickers...)), nil
	}

	return mkResult(HighCard, distinct[:5]), nil
}

func mkResult(cat Category, ranks []int) Result {
	score := int64(cat) * band
	mult := int64(100 * 100 * 100 * 100)
	for _, r := range ranks {
		score += int64(r) * mult
		mult /= 100
	}
	return Result{Score: score, Category: cat, Ranks: ranks}
}

func flushSuitOf(suitCount map[deck.Suit]int) (deck.Suit, bool) {
	for suit, n := range suitCount {
		if n >= 5 {
			return suit, true
		}
	}
	return 0, false
}

// straightHigh returns the high card of a straight in the given distinct
// descending ranks, or 0 if there is none. The wheel (A-2-3-4-5) is detected
// by treating the ace as rank 1, giving a 5-high straight.
func straightHigh(distinct []int) int {
	ranks := distinct
	if len(ranks) > 0 && ranks[0] == int(deck.Ace) {
		ranks = append(append([]int{}, ranks...), 1)
	}
	for i := 0; i+4 < len(ranks); i++ {
		if ranks[i]-ranks[i+4] == 4 {
			return ranks[i]
		}
	}
	return 0
}

func distinctDesc(rankCount map[int]int) []int {
	out := make([]int, 0, len(rankCount))
	for r := range rankCount {
		out = append(out, r)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func dedupeDesc(sorted []int) []int {
	out := sorted[:0:0]
	for i, r := range sorted {
		if i == 0 || r != sorted[i-1] {
			out = append(out, r)
		}
	}
	return out
}

func groupByCount(rankCount map[int]int) (quads, trips, pairs []int) {
	for r, n := range rankCount {
		switch n {
		case 4:
			quads = append(quads, r)
		case 3:
			trips = append(trips, r)
		case 2:
			pairs = append(pairs, r)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(quads)))
	sort.Sort(sort.Reverse(sort.IntSlice(trips)))
	sort.Sort(sort.Reverse(sort.IntSlice(pairs)))
	return quads, trips, pairs
}

func highestExcept(distinct []int, except ...int) int {
	for _, r := range distinct {
		if !contains(except, r) {
			return r
		}
	}
	return 0
}

func topExcept(distinct []int, n int, except ...int) []int {
	out := make([]int, 0, n)
	for _, r := range distinct {
		if contains(except, r) {
			continue
		}
		out = append(out, r)
		if len(out) == n {
			break
		}
	}
	return out
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
