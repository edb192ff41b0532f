package blackjack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iek-bit/Gambly/models"
	"github.com/iek-bit/Gambly/money"
)

func card(s string) models.Card {
	return models.Card{Rank: models.Rank(s[:1]), Suit: models.Suit(s[1:])}
}

// stackDeck builds a deck that deals the given cards in order; the
// dealer draws two first, then each player in seat order takes two.
func stackDeck(inOrder ...string) []models.Card {
	deck := []models.Card{card("2c"), card("3c"), card("4c"), card("5c"), card("9c"), card("Tc")}
	for i := len(inOrder) - 1; i >= 0; i-- {
		deck = append(deck, card(inOrder[i]))
	}
	return deck
}

func testManager(epoch *int64, deck []models.Card) *Manager {
	m := NewManager()
	m.now = func() time.Time { return time.Unix(*epoch, 0) }
	if deck != nil {
		m.newDeck = func() []models.Card { return append([]models.Card{}, deck...) }
	}
	return m
}

func testState(balances map[string]money.Amount) *models.State {
	st := models.DefaultState()
	for name, balance := range balances {
		st.Accounts[name] = models.NewAccount(balance)
	}
	return st
}

func seated(t *testing.T, m *Manager, st *models.State, players ...string) *models.BlackjackTable {
	t.Helper()
	table := m.CreateTable(st, "Test Table", 5, 100, nil, false, "")
	for _, p := range players {
		ok, msg := m.Join(st, table.ID, p, "")
		require.True(t, ok, msg)
	}
	return table
}

func TestHandTotal(t *testing.T) {
	assert.Equal(t, 21, HandTotal([]models.Card{card("Ah"), card("Kd")}))
	assert.Equal(t, 12, HandTotal([]models.Card{card("Ah"), card("Ad")}))
	assert.Equal(t, 21, HandTotal([]models.Card{card("Ah"), card("Ad"), card("9c")}))
	assert.Equal(t, 22, HandTotal([]models.Card{card("Th"), card("Jd"), card("2c")}))
	assert.Equal(t, 17, HandTotal([]models.Card{card("Ah"), card("6d")}))
	assert.Equal(t, 0, HandTotal(nil))
}

func TestIsNatural(t *testing.T) {
	assert.True(t, IsNatural([]models.Card{card("Ah"), card("Qd")}))
	assert.False(t, IsNatural([]models.Card{card("Ah"), card("Ad"), card("9c")}))
	assert.False(t, IsNatural([]models.Card{card("Th"), card("9d")}))
}

func TestRound_NaturalPaysThreeToTwo(t *testing.T) {
	epoch := int64(1000)
	// Dealer shows 17, amy is dealt a natural.
	m := testManager(&epoch, stackDeck("Th", "7d", "Ah", "Kd"))
	st := testState(map[string]money.Amount{"amy": 10000})
	table := seated(t, m, st, "amy")

	ok, msg := m.SetBet(st, table.ID, "amy", 500)
	require.True(t, ok, msg)
	ok, msg, started := m.SetReady(st, table.ID, "amy", true)
	require.True(t, ok, msg)
	require.True(t, started)

	// A natural skips the turn order, so the round settled already.
	assert.False(t, table.InProgress)
	assert.Equal(t, models.PhaseFinished, table.Phase)

	state := table.States["amy"]
	require.NotNil(t, state)
	assert.Equal(t, models.BJResultBlackjack, state.Result)
	assert.Equal(t, money.Amount(1250), state.Payout)

	// Bet 500 debited, payout 1250 credited: net +750.
	assert.Equal(t, money.Amount(10750), st.Accounts["amy"].Balance)

	stats := st.Accounts["amy"].Stats.GameBreakdown[models.GameBlackjack]
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.RoundsPlayed)
	assert.Equal(t, 1, stats.RoundsWon)
	assert.Equal(t, money.Amount(500), stats.TotalBuyIn)
	assert.Equal(t, money.Amount(1250), stats.TotalPayout)
	assert.Equal(t, money.Amount(750), stats.TotalNet)
}

func TestRound_PushReturnsBet(t *testing.T) {
	epoch := int64(1000)
	m := testManager(&epoch, stackDeck("Th", "8d", "Ts", "8c"))
	st := testState(map[string]money.Amount{"amy": 10000})
	table := seated(t, m, st, "amy")

	ok, _ := m.SetBet(st, table.ID, "amy", 500)
	require.True(t, ok)
	_, _, started := m.SetReady(st, table.ID, "amy", true)
	require.True(t, started)
	require.Equal(t, "amy", m.currentTurn(table))

	ok, msg := m.Action(st, table.ID, "amy", "stand")
	require.True(t, ok, msg)

	state := table.States["amy"]
	assert.Equal(t, models.BJResultPush, state.Result)
	assert.Equal(t, money.Amount(500), state.Payout)
	assert.Equal(t, money.Amount(10000), st.Accounts["amy"].Balance)
	assert.Equal(t, 0, st.Accounts["amy"].Stats.RoundsWon)
}

func TestRound_DealerBustPaysDouble(t *testing.T) {
	epoch := int64(1000)
	// Dealer 16 must draw and busts on the ten.
	m := testManager(&epoch, stackDeck("Th", "6d", "Ts", "9c", "Tc"))
	st := testState(map[string]money.Amount{"amy": 10000})
	table := seated(t, m, st, "amy")

	ok, _ := m.SetBet(st, table.ID, "amy", 500)
	require.True(t, ok)
	_, _, started := m.SetReady(st, table.ID, "amy", true)
	require.True(t, started)

	ok, msg := m.Action(st, table.ID, "amy", "stand")
	require.True(t, ok, msg)

	state := table.States["amy"]
	assert.Equal(t, models.BJResultWin, state.Result)
	assert.Equal(t, money.Amount(1000), state.Payout)
	assert.Equal(t, money.Amount(10500), st.Accounts["amy"].Balance)
}

func TestRound_BustLosesImmediately(t *testing.T) {
	epoch := int64(1000)
	// amy holds 15 and busts on the ten.
	m := testManager(&epoch, stackDeck("Th", "7d", "Ts", "5c", "Tc"))
	st := testState(map[string]money.Amount{"amy": 10000})
	table := seated(t, m, st, "amy")

	ok, _ := m.SetBet(st, table.ID, "amy", 500)
	require.True(t, ok)
	_, _, started := m.SetReady(st, table.ID, "amy", true)
	require.True(t, started)

	ok, msg := m.Action(st, table.ID, "amy", "hit")
	require.True(t, ok, msg)

	state := table.States["amy"]
	assert.Equal(t, models.BJResultLoss, state.Result)
	assert.Equal(t, money.Amount(0), state.Payout)
	assert.Equal(t, money.Amount(9500), st.Accounts["amy"].Balance)
}

func TestSetBet_Validation(t *testing.T) {
	epoch := int64(1000)
	m := testManager(&epoch, nil)
	st := testState(map[string]money.Amount{"amy": 10000})
	table := seated(t, m, st, "amy")

	ok, msg := m.SetBet(st, table.ID, "amy", 0)
	assert.False(t, ok)
	assert.Contains(t, msg, "greater than")

	ok, msg = m.SetBet(st, table.ID, "amy", 50)
	assert.False(t, ok)
	assert.Contains(t, msg, "Minimum table bet")

	ok, _ = m.SetBet(st, table.ID, "stranger", 500)
	assert.False(t, ok)
}

func TestStartRound_RefusesUncoveredBet(t *testing.T) {
	epoch := int64(1000)
	m := testManager(&epoch, nil)
	st := testState(map[string]money.Amount{"amy": 300})
	table := seated(t, m, st, "amy")

	ok, _ := m.SetBet(st, table.ID, "amy", 500)
	require.True(t, ok)
	ok, msg, started := m.SetReady(st, table.ID, "amy", true)
	assert.False(t, ok)
	assert.False(t, started)
	assert.Contains(t, msg, "cannot cover")
	assert.Equal(t, money.Amount(300), st.Accounts["amy"].Balance)
}

func TestTimeout_EjectsAndChargesPenaltyOnce(t *testing.T) {
	epoch := int64(1000)
	m := testManager(&epoch, stackDeck("Th", "7d", "Ts", "6c", "Td", "9d"))
	st := testState(map[string]money.Amount{"amy": 10000, "bob": 10000})
	table := seated(t, m, st, "amy", "bob")

	for _, p := range []string{"amy", "bob"} {
		ok, msg := m.SetBet(st, table.ID, p, 400)
		require.True(t, ok, msg)
	}
	_, _, started := m.SetReady(st, table.ID, "amy", true)
	require.False(t, started)
	_, msg, started := m.SetReady(st, table.ID, "bob", true)
	require.True(t, started, msg)
	require.Equal(t, "amy", m.currentTurn(table))
	amyState := table.State("amy")

	// amy sits on her turn past the timeout.
	epoch += int64(st.Blackjack.Settings.TurnTimeoutSeconds) + 1
	require.True(t, m.EnforceTimeouts(st))

	assert.False(t, table.HasPlayer("amy"))
	// The ejection outcome is written to her round state on the way out.
	assert.Equal(t, models.BJTimedOut, amyState.Status)
	assert.Equal(t, models.BJResultLoss, amyState.Result)
	assert.Equal(t, money.Amount(100), amyState.Penalty)
	assert.Equal(t, money.Amount(0), amyState.Payout)
	// Bet 400 forfeited plus 25% penalty of 100: 10000-400-100.
	assert.Equal(t, money.Amount(9500), st.Accounts["amy"].Balance)
	stats := st.Accounts["amy"].Stats.GameBreakdown[models.GameBlackjack]
	require.NotNil(t, stats)
	assert.Equal(t, money.Amount(500), stats.TotalBuyIn)

	// A second sweep at the same instant must not double-charge.
	assert.False(t, m.EnforceTimeouts(st))
	assert.Equal(t, money.Amount(9500), st.Accounts["amy"].Balance)

	// The turn passed to bob with a fresh clock.
	require.Equal(t, "bob", m.currentTurn(table))
	require.Equal(t, epoch, table.TurnStarted)

	// bob times out too; the table empties and resets to defaults.
	epoch += int64(st.Blackjack.Settings.TurnTimeoutSeconds) + 1
	require.True(t, m.EnforceTimeouts(st))
	assert.Equal(t, money.Amount(9500), st.Accounts["bob"].Balance)
	assert.Empty(t, table.Players)
	assert.Equal(t, models.PhaseWaitingForPlayers, table.Phase)
	assert.Equal(t, "Test Table", table.Name)
	assert.Equal(t, st.Blackjack.Settings.DefaultMinBet, table.MinBet)
}

func TestJoin_QueuesDuringRoundAndPromotesAfter(t *testing.T) {
	epoch := int64(1000)
	m := testManager(&epoch, stackDeck("Th", "7d", "Ts", "8c"))
	st := testState(map[string]money.Amount{"amy": 10000, "carol": 10000})
	table := seated(t, m, st, "amy")

	ok, _ := m.SetBet(st, table.ID, "amy", 500)
	require.True(t, ok)
	_, _, started := m.SetReady(st, table.ID, "amy", true)
	require.True(t, started)
	require.True(t, table.InProgress)

	ok, msg := m.Join(st, table.ID, "carol", "")
	require.True(t, ok, msg)
	assert.True(t, table.HasPending("carol"))
	assert.False(t, table.HasPlayer("carol"))

	ok, msg = m.Action(st, table.ID, "amy", "stand")
	require.True(t, ok, msg)

	// Round over: the queue drains into the seats.
	assert.True(t, table.HasPlayer("carol"))
	assert.False(t, table.HasPending("carol"))
}

func TestLeave_RefusedMidRound(t *testing.T) {
	epoch := int64(1000)
	m := testManager(&epoch, stackDeck("Th", "7d", "Ts", "8c"))
	st := testState(map[string]money.Amount{"amy": 10000})
	table := seated(t, m, st, "amy")

	ok, _ := m.SetBet(st, table.ID, "amy", 500)
	require.True(t, ok)
	_, _, started := m.SetReady(st, table.ID, "amy", true)
	require.True(t, started)

	ok, msg := m.Leave(st, table.ID, "amy")
	assert.False(t, ok)
	assert.Contains(t, msg, "in progress")
}

func TestSweep_EjectsDisconnectedPlayer(t *testing.T) {
	epoch := int64(1000)
	m := testManager(&epoch, stackDeck("Th", "7d", "Ts", "6c", "Td", "9d"))
	st := testState(map[string]money.Amount{"amy": 10000, "bob": 10000})
	table := seated(t, m, st, "amy", "bob")

	for _, p := range []string{"amy", "bob"} {
		ok, _ := m.SetBet(st, table.ID, p, 400)
		require.True(t, ok)
	}
	m.SetReady(st, table.ID, "amy", true)
	_, _, started := m.SetReady(st, table.ID, "bob", true)
	require.True(t, started)

	// bob heartbeats, amy goes silent.
	st.MarkActive("bob", epoch)
	st.MarkActive("amy", epoch-120)

	changed := m.Sweep(st, 30)
	require.True(t, changed)
	assert.False(t, table.HasPlayer("amy"))
	// No penalty for a disconnect, just the staked bet lost.
	assert.Equal(t, money.Amount(9600), st.Accounts["amy"].Balance)
	assert.Equal(t, "bob", m.currentTurn(table))
}

func TestSweep_DisconnectRestartsInheritedTurnClock(t *testing.T) {
	epoch := int64(1000)
	m := testManager(&epoch, stackDeck("Th", "7d", "Ts", "6c", "Td", "9d"))
	st := testState(map[string]money.Amount{"amy": 10000, "bob": 10000})
	table := seated(t, m, st, "amy", "bob")

	for _, p := range []string{"amy", "bob"} {
		ok, _ := m.SetBet(st, table.ID, p, 400)
		require.True(t, ok)
	}
	m.SetReady(st, table.ID, "amy", true)
	_, _, started := m.SetReady(st, table.ID, "bob", true)
	require.True(t, started)
	require.Equal(t, "amy", m.currentTurn(table))

	// amy vanishes 20s into her turn; bob inherits it.
	epoch += 20
	st.MarkActive("bob", epoch)
	st.MarkActive("amy", epoch-120)
	require.True(t, m.Sweep(st, 30))
	require.Equal(t, "bob", m.currentTurn(table))
	assert.Equal(t, epoch, table.TurnStarted)

	// 11s later bob is still well inside his own timeout window; the
	// leftover 20s from amy's turn must not count against him.
	epoch += 11
	st.MarkActive("bob", epoch)
	assert.False(t, m.Sweep(st, 30))
	assert.True(t, table.HasPlayer("bob"))
	assert.Equal(t, money.Amount(9600), st.Accounts["bob"].Balance)
}

func TestSweep_DisconnectedPlayerNotAlsoPenalizedForTimeout(t *testing.T) {
	epoch := int64(1000)
	m := testManager(&epoch, stackDeck("Th", "7d", "Ts", "6c", "Td", "9d"))
	st := testState(map[string]money.Amount{"amy": 10000, "bob": 10000})
	table := seated(t, m, st, "amy", "bob")

	for _, p := range []string{"amy", "bob"} {
		ok, _ := m.SetBet(st, table.ID, p, 400)
		require.True(t, ok)
	}
	m.SetReady(st, table.ID, "amy", true)
	_, _, started := m.SetReady(st, table.ID, "bob", true)
	require.True(t, started)
	require.Equal(t, "amy", m.currentTurn(table))

	// amy both went silent and sat past the turn timeout. The
	// disconnect wins: she forfeits the bet, no penalty on top.
	epoch += int64(st.Blackjack.Settings.TurnTimeoutSeconds) + 1
	st.MarkActive("bob", epoch)
	st.MarkActive("amy", epoch-120)
	require.True(t, m.Sweep(st, 30))

	assert.False(t, table.HasPlayer("amy"))
	assert.Equal(t, money.Amount(9600), st.Accounts["amy"].Balance)
	stats := st.Accounts["amy"].Stats.GameBreakdown[models.GameBlackjack]
	require.NotNil(t, stats)
	assert.Equal(t, money.Amount(400), stats.TotalBuyIn)

	// bob inherited the turn with a fresh clock and stays seated.
	require.Equal(t, "bob", m.currentTurn(table))
	assert.True(t, table.HasPlayer("bob"))
	assert.Equal(t, money.Amount(9600), st.Accounts["bob"].Balance)
}

func TestUpdateTableSettings_ClearsOutOfLimitBets(t *testing.T) {
	epoch := int64(1000)
	m := testManager(&epoch, nil)
	st := testState(map[string]money.Amount{"amy": 10000})
	table := seated(t, m, st, "amy")

	ok, msg := m.SetBet(st, table.ID, "amy", 200)
	require.True(t, ok, msg)

	// Raising the minimum above amy's staged bet knocks it out.
	ok, msg = m.UpdateTableSettings(st, table.ID, 0, 500, nil, nil, nil, "")
	require.True(t, ok, msg)
	assert.Equal(t, money.Amount(500), table.MinBet)

	state := table.State("amy")
	assert.Equal(t, money.Amount(0), state.Bet)
	assert.False(t, state.Ready)
	assert.Contains(t, state.Message, "updated table limits")
}

func TestUpdateTableSettings_Validation(t *testing.T) {
	epoch := int64(1000)
	m := testManager(&epoch, nil)
	st := testState(map[string]money.Amount{"amy": 10000})
	table := seated(t, m, st, "amy")
	other := m.CreateTable(st, "High Rollers", 5, 100, nil, false, "")

	ok, msg := m.UpdateTableSettings(st, other.ID, 0, 0, nil, nil, nil, "test table")
	require.False(t, ok)
	assert.Contains(t, msg, "already exists")

	private := true
	ok, msg = m.UpdateTableSettings(st, table.ID, 0, 0, nil, &private, nil, "")
	require.False(t, ok)
	assert.Contains(t, msg, "password")

	ok, msg = m.UpdateTableSettings(st, table.ID, 20, 0, nil, nil, nil, "")
	require.True(t, ok, msg)
	assert.Equal(t, 8, table.MaxPlayers)
}

func TestLeave_EmptyTableResetKeepsName(t *testing.T) {
	epoch := int64(1000)
	m := testManager(&epoch, nil)
	st := testState(map[string]money.Amount{"amy": 10000})
	table := seated(t, m, st, "amy")
	table.MinBet = 7

	ok, msg := m.Leave(st, table.ID, "amy")
	require.True(t, ok, msg)
	assert.Empty(t, table.Players)
	assert.Equal(t, "Test Table", table.Name)
	assert.Equal(t, st.Blackjack.Settings.DefaultMinBet, table.MinBet)
	assert.Equal(t, models.PhaseWaitingForPlayers, table.Phase)
}
