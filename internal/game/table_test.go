package game

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomlabs/cardroom/internal/deck"
	"github.com/cardroomlabs/cardroom/internal/money"
)

func testConfig() Config {
	return Config{
		ID:         "tbl-1",
		Name:       "Test Table",
		SmallBlind: 100,
		BigBlind:   200,
		MinBuyIn:   4000,
		MaxBuyIn:   20000,
		MaxSeats:   6,
	}
}

// stackedDeck scripts the exact deal for a hand. Cards are consumed two per
// player in hand order, then flop, turn, river.
func stackedDeck(cards ...string) func() *deck.Deck {
	parsed := make([]deck.Card, len(cards))
	for i, c := range cards {
		parsed[i] = deck.MustParse(c)
	}
	return func() *deck.Deck { return deck.Stacked(parsed...) }
}

func totalChips(tbl *Table) money.Cents {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	total := tbl.pot
	for _, p := range tbl.seats {
		total += p.Stack
	}
	return total
}

func TestHeadsUpBlindsAndOrder(t *testing.T) {
	tbl := New(testConfig())
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	assert.Equal(t, Waiting, tbl.street, "one player is not enough to start")

	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	require.Equal(t, Preflop, tbl.street)
	assert.Equal(t, 0, tbl.dealerSeat)

	// Heads-up the dealer posts the small blind and acts first preflop.
	alice := tbl.seats[0]
	bob := tbl.seats[1]
	assert.Equal(t, money.Cents(100), alice.CurrentBet)
	assert.Equal(t, "SMALL BLIND", alice.LastAction)
	assert.Equal(t, money.Cents(200), bob.CurrentBet)
	assert.Equal(t, "BIG BLIND", bob.LastAction)
	assert.Equal(t, money.Cents(300), tbl.pot)
	assert.Equal(t, 0, tbl.currentSeat)
	assert.Len(t, alice.HoleCards, 2)
	assert.Len(t, bob.HoleCards, 2)
}

func TestPreflopFoldAwardsPot(t *testing.T) {
	tbl := New(testConfig())
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	require.NoError(t, tbl.HandleAction(1, Fold, 0))

	assert.Equal(t, Showdown, tbl.street)
	assert.Equal(t, money.Cents(9900), tbl.seats[0].Stack)
	assert.Equal(t, money.Cents(10100), tbl.seats[1].Stack)
	assert.Equal(t, money.Cents(0), tbl.pot)
	require.Len(t, tbl.winners, 1)
	assert.Equal(t, int64(2), tbl.winners[0].UserID)
	assert.Equal(t, money.Cents(300), tbl.winners[0].Amount)
	assert.Equal(t, "Opponents Folded", tbl.winners[0].Category)

	assert.Equal(t, money.Cents(20000), totalChips(tbl), "chips must be conserved")
}

func TestBigBlindGetsOption(t *testing.T) {
	tbl := New(testConfig())
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	// The small blind limping does not end the round; the big blind still
	// has the option even though the bets match.
	require.NoError(t, tbl.HandleAction(1, Call, 0))
	assert.Equal(t, Preflop, tbl.street)
	assert.Equal(t, 1, tbl.currentSeat)

	require.NoError(t, tbl.HandleAction(2, Check, 0))
	assert.Equal(t, Flop, tbl.street)
	assert.Len(t, tbl.community, 3)
}

func TestInvalidActions(t *testing.T) {
	tbl := New(testConfig())
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	assert.ErrorIs(t, tbl.HandleAction(2, Check, 0), ErrNotYourTurn)
	assert.ErrorIs(t, tbl.HandleAction(99, Fold, 0), ErrNotSeated)
	assert.ErrorIs(t, tbl.HandleAction(1, Check, 0), ErrCannotCheck)
	assert.ErrorIs(t, tbl.HandleAction(1, Raise, 300), ErrRaiseTooSmall)
	assert.ErrorIs(t, tbl.HandleAction(1, Raise, 50000), ErrRaiseTooSmall)
}

// threeHandedHand seats alice (seat 0, 10000) and bob (seat 1, 10000),
// which starts a heads-up hand immediately, seats carol (seat 2, 500)
// while that hand is live, resolves it with a fold and advances the clock
// past the restart delay so a genuine three-handed hand is dealt.
//
// The second hand has dealer bob; carol posts the small blind, alice the
// big blind and bob acts first, with stacks alice 9900, bob 10100,
// carol 500. The deck factory runs per hand, so a stacked factory serves
// its script fresh to the second hand: deal order carol, alice, bob.
func threeHandedHand(t *testing.T, opts ...Option) *Table {
	t.Helper()

	mockClock := quartz.NewMock(t)
	tbl := New(testConfig(), append([]Option{WithClock(mockClock)}, opts...)...)
	t.Cleanup(tbl.Close)

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, 0)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, 1)
	require.NoError(t, err)

	_, err = tbl.AddPlayer(PlayerInfo{UserID: 3, Username: "carol"}, 500, 2)
	require.NoError(t, err)
	require.Empty(t, tbl.seats[2].HoleCards, "carol must not join the live hand")

	require.NoError(t, tbl.HandleAction(1, Fold, 0))
	require.Equal(t, Showdown, tbl.street)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mockClock.Advance(restartDelay).MustWait(ctx)

	require.Equal(t, Preflop, tbl.street)
	require.Equal(t, 1, tbl.dealerSeat)
	require.Equal(t, []int{2, 0, 1}, tbl.handSeats)
	require.Equal(t, money.Cents(100), tbl.seats[2].CurrentBet)
	require.Equal(t, money.Cents(200), tbl.seats[0].CurrentBet)
	require.Equal(t, 1, tbl.currentSeat)
	return tbl
}

func TestShortAllInDoesNotReopenBetting(t *testing.T) {
	tbl := threeHandedHand(t)

	// Bob opens to 400.
	require.NoError(t, tbl.HandleAction(2, Raise, 400))

	// Carol's all-in to 500 is less than a full raise on top of 400.
	require.NoError(t, tbl.HandleAction(3, Raise, 500))
	assert.True(t, tbl.seats[2].AllIn)
	assert.Equal(t, "ALL IN", tbl.seats[2].LastAction)
	assert.Equal(t, money.Cents(500), tbl.currentBet)

	// The short all-in must not lower the minimum raise: alice cannot
	// bump by less than a full raise over 500.
	assert.ErrorIs(t, tbl.HandleAction(1, Raise, 600), ErrRaiseTooSmall)

	require.NoError(t, tbl.HandleAction(1, Call, 0))
	require.NoError(t, tbl.HandleAction(2, Call, 0))
	assert.Equal(t, Flop, tbl.street)
	assert.Equal(t, money.Cents(1500), tbl.pot)
}

func TestSidePotLayering(t *testing.T) {
	// Carol is short and all-in for 500 preflop; alice and bob bet another
	// 300 each on the flop into a side pot carol cannot win.
	tbl := threeHandedHand(t, WithDeckFactory(stackedDeck(
		"As", "Ah", // carol
		"Ks", "Kh", // alice
		"Qs", "Qh", // bob
		"2c", "7d", "9h", // flop
		"3s", // turn
		"5c", // river
	)))

	require.NoError(t, tbl.HandleAction(2, Call, 0))
	require.NoError(t, tbl.HandleAction(3, Raise, 500)) // all-in, full raise over 200
	require.NoError(t, tbl.HandleAction(1, Call, 0))
	require.NoError(t, tbl.HandleAction(2, Call, 0))

	require.Equal(t, Flop, tbl.street)
	require.NoError(t, tbl.HandleAction(1, Raise, 300))
	require.NoError(t, tbl.HandleAction(2, Call, 0))

	require.Equal(t, Turn, tbl.street)
	require.NoError(t, tbl.HandleAction(1, Check, 0))
	require.NoError(t, tbl.HandleAction(2, Check, 0))

	require.Equal(t, River, tbl.street)
	require.NoError(t, tbl.HandleAction(1, Check, 0))
	require.NoError(t, tbl.HandleAction(2, Check, 0))

	require.Equal(t, Showdown, tbl.street)

	// Carol's aces win the 1500 main pot; alice's kings beat bob's queens
	// for the 600 side pot.
	require.Len(t, tbl.winners, 2)
	assert.Equal(t, int64(3), tbl.winners[0].UserID)
	assert.Equal(t, money.Cents(1500), tbl.winners[0].Amount)
	assert.Equal(t, "One Pair", tbl.winners[0].Category)
	assert.Equal(t, int64(1), tbl.winners[1].UserID)
	assert.Equal(t, money.Cents(600), tbl.winners[1].Amount)

	assert.Equal(t, money.Cents(9700), tbl.seats[0].Stack)
	assert.Equal(t, money.Cents(9300), tbl.seats[1].Stack)
	assert.Equal(t, money.Cents(1500), tbl.seats[2].Stack)
	assert.Equal(t, money.Cents(20500), totalChips(tbl))
}

func TestLeaveMidHandLeavesChipsInPot(t *testing.T) {
	tbl := threeHandedHand(t, WithDeckFactory(stackedDeck(
		"2s", "3h", // carol, leaves mid-hand
		"As", "Ah", // alice
		"Ks", "Kh", // bob
		"2c", "7d", "9h",
		"3s",
		"5c",
	)))

	require.NoError(t, tbl.HandleAction(2, Raise, 400))

	// Carol leaves while holding the action. Her small blind stays in the
	// pot; only her remaining stack is refunded.
	refund, err := tbl.RemovePlayer(3)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(400), refund)
	assert.Equal(t, 2, tbl.PlayerCount())

	require.NoError(t, tbl.HandleAction(1, Call, 0))

	require.Equal(t, Flop, tbl.street)
	require.NoError(t, tbl.HandleAction(1, Check, 0))
	require.NoError(t, tbl.HandleAction(2, Check, 0))
	require.NoError(t, tbl.HandleAction(1, Check, 0))
	require.NoError(t, tbl.HandleAction(2, Check, 0))
	require.NoError(t, tbl.HandleAction(1, Check, 0))
	require.NoError(t, tbl.HandleAction(2, Check, 0))

	require.Equal(t, Showdown, tbl.street)
	require.Len(t, tbl.winners, 1)
	assert.Equal(t, int64(1), tbl.winners[0].UserID)
	assert.Equal(t, money.Cents(900), tbl.winners[0].Amount, "pot includes the leaver's dead chips")

	assert.Equal(t, money.Cents(10400), tbl.seats[0].Stack)
	assert.Equal(t, money.Cents(9700), tbl.seats[1].Stack)
	assert.Equal(t, money.Cents(20500), totalChips(tbl)+refund)
}

func TestTurnTimeoutChecksAndSitsOut(t *testing.T) {
	mockClock := quartz.NewMock(t)
	tbl := New(testConfig(), WithClock(mockClock))
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	require.NoError(t, tbl.HandleAction(1, Call, 0))
	require.NoError(t, tbl.HandleAction(2, Check, 0))

	// Heads-up post-flop the non-dealer acts first. Bob never acts.
	require.Equal(t, Flop, tbl.street)
	require.Equal(t, 1, tbl.currentSeat)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mockClock.Advance(30 * time.Second).MustWait(ctx)

	// Checking was legal, so the timeout checks rather than folds, flags
	// bob sitting out, and passes the action on.
	bob := tbl.seats[1]
	assert.True(t, bob.SittingOut)
	assert.False(t, bob.Folded)
	assert.Equal(t, "CHECK", bob.LastAction)
	assert.Equal(t, Flop, tbl.street)
	assert.Equal(t, 0, tbl.currentSeat)
}

func TestTurnTimeoutFoldsWhenFacingBet(t *testing.T) {
	mockClock := quartz.NewMock(t)
	tbl := New(testConfig(), WithClock(mockClock))
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	// Alice owes the big blind; timing out forces a fold.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mockClock.Advance(30 * time.Second).MustWait(ctx)

	assert.Equal(t, Showdown, tbl.street)
	assert.True(t, tbl.seats[0].SittingOut)
	assert.Equal(t, money.Cents(9900), tbl.seats[0].Stack)
	assert.Equal(t, money.Cents(10100), tbl.seats[1].Stack)
}

func TestHandRestartsAfterShowdown(t *testing.T) {
	mockClock := quartz.NewMock(t)
	tbl := New(testConfig(), WithClock(mockClock))
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	require.NoError(t, tbl.HandleAction(1, Fold, 0))
	require.Equal(t, Showdown, tbl.street)
	firstHand := tbl.handID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mockClock.Advance(restartDelay).MustWait(ctx)

	require.Equal(t, Preflop, tbl.street)
	assert.NotEqual(t, firstHand, tbl.handID)
	assert.Equal(t, 1, tbl.dealerSeat, "button moves to the next seat")
	assert.Equal(t, 1, tbl.currentSeat)
	assert.Equal(t, money.Cents(300), tbl.pot)
}

func TestHandFinishedHookReportsResults(t *testing.T) {
	results := make(chan HandResult, 1)
	tbl := New(testConfig(), WithHandFinished(func(r HandResult) { results <- r }))
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)
	require.NoError(t, tbl.HandleAction(1, Fold, 0))

	select {
	case r := <-results:
		assert.Equal(t, "tbl-1", r.TableID)
		assert.NotEmpty(t, r.HandID)
		assert.Equal(t, money.Cents(300), r.Pot)
		require.Len(t, r.Winners, 1)
		assert.Equal(t, int64(2), r.Winners[0].UserID)
		require.Len(t, r.Players, 2)
		for _, p := range r.Players {
			switch p.UserID {
			case 1:
				assert.Equal(t, money.Cents(-100), p.Net)
			case 2:
				assert.Equal(t, money.Cents(100), p.Net)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("hand result never delivered")
	}
}

func TestAddPlayerSeatErrors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSeats = 2
	tbl := New(cfg)
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, 0)
	require.NoError(t, err)

	_, err = tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, 1)
	assert.ErrorIs(t, err, ErrAlreadySeated)

	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, 0)
	assert.ErrorIs(t, err, ErrSeatTaken)

	seat, err := tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, seat)

	_, err = tbl.AddPlayer(PlayerInfo{UserID: 3, Username: "carol"}, 10000, -1)
	assert.ErrorIs(t, err, ErrTableFull)
}

func TestDisconnectWhileActingAutoActs(t *testing.T) {
	tbl := New(testConfig())
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	// Alice disconnects while owing the big blind: the engine folds for
	// her but keeps her seated for reconnection.
	tbl.SetConnected(1, false)

	assert.Equal(t, Showdown, tbl.street)
	alice := tbl.seats[0]
	assert.True(t, alice.SittingOut)
	assert.False(t, alice.Connected)
	assert.Equal(t, money.Cents(9900), alice.Stack)
	assert.True(t, tbl.HasPlayer(1), "disconnection must not vacate the seat")
}

func TestSitOutAndSitIn(t *testing.T) {
	tbl := New(testConfig())
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	// Sitting out while holding the action folds the hand.
	require.NoError(t, tbl.SitOut(1))
	assert.Equal(t, Showdown, tbl.street)

	// With only one eligible player the next hand cannot start; the fired
	// restart falls back to waiting.
	tbl.mu.Lock()
	tbl.street = Waiting
	tbl.startHandLocked()
	street := tbl.street
	tbl.mu.Unlock()
	assert.Equal(t, Waiting, street)

	require.NoError(t, tbl.SitIn(1))
	assert.Equal(t, Preflop, tbl.street, "sitting back in restarts the game")
}

func TestNotifySendsPerViewerSnapshots(t *testing.T) {
	type push struct {
		tableID string
		snaps   map[int64]Snapshot
	}
	var pushes []push
	tbl := New(testConfig(), WithNotify(func(tableID string, snaps map[int64]Snapshot) {
		pushes = append(pushes, push{tableID, snaps})
	}))
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	require.NotEmpty(t, pushes)
	last := pushes[len(pushes)-1]
	assert.Equal(t, "tbl-1", last.tableID)
	require.Contains(t, last.snaps, int64(1))
	require.Contains(t, last.snaps, int64(2))

	// Each viewer sees their own hole cards and a redacted opponent.
	aliceView := last.snaps[1]
	require.Len(t, aliceView.Players, 2)
	assert.NotEqual(t, "?", aliceView.Players[0].Cards[0].Rank)
	assert.Equal(t, "?", aliceView.Players[1].Cards[0].Rank)
}
