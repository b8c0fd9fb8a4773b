package game

import (
	"sort"

	"github.com/cardroomlabs/cardroom/internal/money"
)

// potLayer is one slice of the total pot. Players whose hand contribution
// reaches the layer's cap are eligible to win it; shorter contributions
// (including folded players' dead money) fund it without eligibility.
type potLayer struct {
	Amount   money.Cents
	Eligible []int // seats, in hand order
}

// buildPotLayers partitions all hand contributions into layers at the
// distinct all-in amounts of the surviving players. With no all-ins the
// result is a single main pot.
func buildPotLayers(players []*Player, order []int) []potLayer {
	bySeat := make(map[int]*Player, len(players))
	for _, p := range players {
		bySeat[p.Seat] = p
	}

	// Layer caps: the distinct total contributions of surviving all-in
	// players, ascending, then one open layer above the highest cap.
	capSet := make(map[money.Cents]bool)
	for _, p := range players {
		if !p.Folded && p.AllIn && p.TotalBet > 0 {
			capSet[p.TotalBet] = true
		}
	}
	caps := make([]money.Cents, 0, len(capSet)+1)
	for c := range capSet {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })

	var maxContribution money.Cents
	for _, p := range players {
		if p.TotalBet > maxContribution {
			maxContribution = p.TotalBet
		}
	}
	if len(caps) == 0 || caps[len(caps)-1] < maxContribution {
		caps = append(caps, maxContribution)
	}

	var layers []potLayer
	var prev money.Cents
	for _, level := range caps {
		layer := potLayer{}
		for _, p := range players {
			contribution := p.TotalBet - prev
			if contribution > level-prev {
				contribution = level - prev
			}
			if contribution > 0 {
				layer.Amount += contribution
			}
		}
		// Eligibility follows hand order so odd chips award clockwise
		// from the dealer.
		for _, seat := range order {
			p := bySeat[seat]
			if p != nil && !p.Folded && p.TotalBet > prev {
				layer.Eligible = append(layer.Eligible, seat)
			}
		}
		if layer.Amount > 0 && len(layer.Eligible) > 0 {
			layers = append(layers, layer)
		}
		prev = level
	}

	return layers
}

// splitLayer divides a layer among the winning seats. The remainder is
// awarded one cent at a time in the given seat order.
func splitLayer(amount money.Cents, winners []int) map[int]money.Cents {
	shares := make(map[int]money.Cents, len(winners))
	if len(winners) == 0 {
		return shares
	}
	share := amount / money.Cents(len(winners))
	remainder := amount % money.Cents(len(winners))
	for i, seat := range winners {
		award := share
		if money.Cents(i) < remainder {
			award++
		}
		shares[seat] = award
	}
	return shares
}
