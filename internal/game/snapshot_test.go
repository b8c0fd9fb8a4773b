package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRedactsOpponentCards(t *testing.T) {
	tbl := New(testConfig(), WithDeckFactory(stackedDeck(
		"As", "Kd", // bob (heads-up non-dealer is dealt first)
		"Qh", "Jc", // alice
	)))
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	aliceView := tbl.SnapshotFor(1)
	bobView := tbl.SnapshotFor(2)

	require.Len(t, aliceView.Players, 2)
	require.Len(t, bobView.Players, 2)

	// Players are listed by seat: alice in seat 0, bob in seat 1.
	assert.Equal(t, "Q", aliceView.Players[0].Cards[0].Rank)
	assert.Equal(t, "J", aliceView.Players[0].Cards[1].Rank)
	for _, c := range aliceView.Players[1].Cards {
		assert.Equal(t, "?", c.Rank)
		assert.Equal(t, "?", c.Suit)
		assert.Equal(t, 0, c.Value)
	}

	assert.Equal(t, "A", bobView.Players[1].Cards[0].Rank)
	for _, c := range bobView.Players[0].Cards {
		assert.Equal(t, "?", c.Rank)
	}

	// A spectator sees nobody's cards.
	spectator := tbl.SnapshotFor(999)
	for _, p := range spectator.Players {
		for _, c := range p.Cards {
			assert.Equal(t, "?", c.Rank)
		}
	}
}

func TestSnapshotViewsDifferOnlyInCards(t *testing.T) {
	tbl := New(testConfig())
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	a := tbl.SnapshotFor(1)
	b := tbl.SnapshotFor(2)

	for i := range a.Players {
		a.Players[i].Cards = nil
		b.Players[i].Cards = nil
	}
	assert.Equal(t, a, b)
}

func TestSnapshotRevealsSurvivorsAtShowdown(t *testing.T) {
	tbl := New(testConfig(), WithDeckFactory(stackedDeck(
		"As", "Kd", // bob
		"Qh", "Jc", // alice
		"2c", "7d", "9h",
		"3s",
		"5c",
	)))
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	require.NoError(t, tbl.HandleAction(1, Call, 0))
	require.NoError(t, tbl.HandleAction(2, Check, 0))
	for tbl.street.IsBetting() {
		require.NoError(t, tbl.HandleAction(2, Check, 0))
		require.NoError(t, tbl.HandleAction(1, Check, 0))
	}
	require.Equal(t, Showdown, tbl.street)

	// At showdown every surviving hand is face up for all viewers.
	view := tbl.SnapshotFor(1)
	assert.Equal(t, "Q", view.Players[0].Cards[0].Rank)
	assert.Equal(t, "A", view.Players[1].Cards[0].Rank)
	require.Len(t, view.Winners, 1)
	assert.Equal(t, int64(2), view.Winners[0].UserID)
	assert.Equal(t, "High Card", view.Winners[0].Category)
	assert.Equal(t, "showdown", view.GamePhase)
	assert.Len(t, view.CommunityCards, 5)
}

func TestSnapshotIsPure(t *testing.T) {
	tbl := New(testConfig())
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)
	_, err = tbl.AddPlayer(PlayerInfo{UserID: 2, Username: "bob"}, 10000, -1)
	require.NoError(t, err)

	first := tbl.SnapshotFor(1)
	second := tbl.SnapshotFor(1)
	assert.Equal(t, first, second)
}

func TestInfoListsLobbyFields(t *testing.T) {
	cfg := testConfig()
	cfg.Private = true
	tbl := New(cfg)
	defer tbl.Close()

	_, err := tbl.AddPlayer(PlayerInfo{UserID: 1, Username: "alice"}, 10000, -1)
	require.NoError(t, err)

	info := tbl.Info()
	assert.Equal(t, "tbl-1", info.TableID)
	assert.Equal(t, "Test Table", info.Name)
	assert.Equal(t, 1.0, info.SmallBlind)
	assert.Equal(t, 2.0, info.BigBlind)
	assert.Equal(t, 6, info.MaxPlayers)
	assert.Equal(t, 1, info.PlayerCount)
	assert.True(t, info.Private)
	assert.Equal(t, "waiting", info.GamePhase)
}
