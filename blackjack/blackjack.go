// Package blackjack runs the multiplayer blackjack tables. Every
// operation takes the shared state that the caller loaded under the
// store lock, mutates it in memory and reports whether anything was
// rejected.
package blackjack

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iek-bit/Gambly/models"
	"github.com/iek-bit/Gambly/money"
)

const dealerStandTotal = 17

// Manager executes table operations. The clock and the shoe are
// injectable so timeout behavior and dealt cards are testable.
type Manager struct {
	now     func() time.Time
	newDeck func() []models.Card
}

func NewManager() *Manager {
	return &Manager{
		now:     time.Now,
		newDeck: func() []models.Card { return models.NewDeck().Cards },
	}
}

// NewManagerAt uses a fixed clock source.
func NewManagerAt(now func() time.Time) *Manager {
	m := NewManager()
	m.now = now
	return m
}

// HandTotal computes the best blackjack total, counting aces as 11
// and dropping them to 1 while the hand would bust.
func HandTotal(cards []models.Card) int {
	total := 0
	aces := 0
	for _, c := range cards {
		switch c.Rank {
		case models.Ace:
			total += 11
			aces++
		case models.Jack, models.Queen, models.King, models.Ten:
			total += 10
		default:
			total += c.Value()
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsNatural reports a two-card 21.
func IsNatural(cards []models.Card) bool {
	return len(cards) == 2 && HandTotal(cards) == 21
}

func tableByID(st *models.State, id int) *models.BlackjackTable {
	for _, t := range st.Blackjack.Tables {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// CreateTable adds a table seeded from platform defaults. A zero
// maxPlayers or minBet falls back to the settings.
func (m *Manager) CreateTable(st *models.State, name string, maxPlayers int, minBet money.Amount, maxBet *money.Amount, isPrivate bool, password string) *models.BlackjackTable {
	settings := st.Blackjack.Settings
	if maxPlayers <= 0 {
		maxPlayers = settings.DefaultMaxPlayers
	}
	if maxPlayers > 8 {
		maxPlayers = 8
	}
	if minBet <= 0 {
		minBet = settings.DefaultMinBet
	}
	if maxBet != nil && *maxBet < minBet {
		capped := minBet
		maxBet = &capped
	}

	id := st.Blackjack.NextID
	for _, t := range st.Blackjack.Tables {
		if t.ID >= id {
			id = t.ID + 1
		}
	}
	st.Blackjack.NextID = id + 1
	if name == "" {
		name = fmt.Sprintf("Table %d", id)
	}

	table := &models.BlackjackTable{
		ID:          id,
		Name:        name,
		MaxPlayers:  maxPlayers,
		MinBet:      minBet,
		MaxBet:      maxBet,
		IsPrivate:   isPrivate,
		Password:    password,
		Phase:       models.PhaseWaitingForPlayers,
		Players:     []string{},
		Pending:     []string{},
		DealerCards: []models.Card{},
		Deck:        []models.Card{},
		TurnOrder:   []string{},
		States:      map[string]*models.BlackjackPlayer{},
		History:     []string{},
		LastUpdated: m.now().Unix(),
	}
	st.Blackjack.Tables = append(st.Blackjack.Tables, table)
	return table
}

// DeleteTable removes an idle table; tables with a live round stay.
func (m *Manager) DeleteTable(st *models.State, id int) (bool, string) {
	for i, t := range st.Blackjack.Tables {
		if t.ID != id {
			continue
		}
		if t.InProgress {
			return false, "Cannot delete a table while a round is in progress."
		}
		st.Blackjack.Tables = append(st.Blackjack.Tables[:i], st.Blackjack.Tables[i+1:]...)
		return true, fmt.Sprintf("Table %d deleted.", id)
	}
	return false, "Table not found."
}

// Join seats the player, or queues them while a round is running.
// Joining one table removes the player from any idle table they were
// sitting at; a live table elsewhere blocks the move.
func (m *Manager) Join(st *models.State, tableID int, player, password string) (bool, string) {
	if _, ok := st.Accounts[player]; !ok {
		return false, "You must be signed in to join."
	}
	m.EnforceTimeouts(st)
	dest := tableByID(st, tableID)
	if dest == nil {
		return false, "Table not found."
	}
	if dest.IsPrivate && dest.Password != "" && password != dest.Password {
		return false, "Incorrect table password."
	}

	for _, table := range st.Blackjack.Tables {
		if !table.HasPlayer(player) && !table.HasPending(player) {
			continue
		}
		if table.ID == tableID {
			if table.HasPending(player) {
				return true, "You are already queued for this table."
			}
			return true, "Already in this table."
		}
		if table.InProgress {
			return false, "Leave your current active table before joining another."
		}
		m.removePlayer(st, table, player)
	}

	if dest.Occupancy() >= dest.MaxPlayers {
		return false, "Table is full."
	}

	if dest.InProgress {
		dest.Pending = append(dest.Pending, player)
		dest.AppendHistory(fmt.Sprintf("%s queued to join on the next hand.", player))
		dest.LastUpdated = m.now().Unix()
		return true, "Hand in progress. You are queued to join at the next hand."
	}

	dest.Players = append(dest.Players, player)
	dest.States[player] = &models.BlackjackPlayer{Status: models.BJWaiting, Cards: []models.Card{}}
	if dest.Host == "" {
		dest.Host = player
	}
	if dest.Phase == models.PhaseWaitingForPlayers {
		dest.Phase = models.PhaseWaitingForBets
	}
	dest.LastUpdated = m.now().Unix()
	dest.AppendHistory(fmt.Sprintf("%s joined the table.", player))
	return true, fmt.Sprintf("Joined table %d.", tableID)
}

// Leave removes the player from the seat or queue. Leaving a live
// round is refused; use the timeout path for that.
func (m *Manager) Leave(st *models.State, tableID int, player string) (bool, string) {
	m.EnforceTimeouts(st)
	table := tableByID(st, tableID)
	if table == nil {
		return false, "Table not found."
	}
	if table.HasPending(player) {
		table.Pending = removeName(table.Pending, player)
		table.AppendHistory(fmt.Sprintf("%s left the join queue.", player))
		table.LastUpdated = m.now().Unix()
		return true, fmt.Sprintf("Removed from queue for table %d.", tableID)
	}
	if !table.HasPlayer(player) {
		return true, "You are not in this table."
	}
	if table.InProgress {
		return false, "Cannot leave while a hand is in progress."
	}

	m.removePlayer(st, table, player)
	return true, fmt.Sprintf("Left table %d.", tableID)
}

// removePlayer unseats player, reassigns the host and resets the
// table to defaults once it empties.
func (m *Manager) removePlayer(st *models.State, table *models.BlackjackTable, player string) {
	table.Players = removeName(table.Players, player)
	table.Pending = removeName(table.Pending, player)
	delete(table.States, player)
	if table.Host == player {
		table.Host = ""
		if len(table.Players) > 0 {
			table.Host = table.Players[0]
		}
	}
	table.AppendHistory(fmt.Sprintf("%s left the table.", player))
	if len(table.Players) == 0 {
		m.resetTable(st, table)
		return
	}
	table.Phase = models.PhaseWaitingForBets
	table.InProgress = false
	table.TurnOrder = []string{}
	table.TurnIndex = 0
	table.TurnStarted = 0
	table.DealerCards = []models.Card{}
	table.Deck = []models.Card{}
	table.LastUpdated = m.now().Unix()
}

// resetTable restores default settings but keeps the table's
// identity.
func (m *Manager) resetTable(st *models.State, table *models.BlackjackTable) {
	settings := st.Blackjack.Settings
	name := table.Name
	*table = models.BlackjackTable{
		ID:          table.ID,
		Name:        name,
		MaxPlayers:  settings.DefaultMaxPlayers,
		MinBet:      settings.DefaultMinBet,
		MaxBet:      settings.DefaultMaxBet,
		Phase:       models.PhaseWaitingForPlayers,
		Players:     []string{},
		Pending:     []string{},
		DealerCards: []models.Card{},
		Deck:        []models.Card{},
		TurnOrder:   []string{},
		States:      map[string]*models.BlackjackPlayer{},
		History:     []string{},
		LastUpdated: m.now().Unix(),
	}
}

// UpdateTableSettings edits an idle table's limits and identity. Nil
// optionals keep the current value. Staged bets that fall outside
// the new limits are cleared back to waiting.
func (m *Manager) UpdateTableSettings(st *models.State, tableID int, maxPlayers int, minBet money.Amount, maxBet *money.Amount, isPrivate *bool, password *string, name string) (bool, string) {
	m.EnforceTimeouts(st)
	table := tableByID(st, tableID)
	if table == nil {
		return false, "Table not found."
	}
	if table.InProgress {
		return false, "Cannot edit table settings during an active hand."
	}

	newName := table.Name
	if name != "" {
		newName = name
	}
	newPrivate := table.IsPrivate
	if isPrivate != nil {
		newPrivate = *isPrivate
	}
	newPassword := table.Password
	if password != nil {
		newPassword = *password
	}
	newMaxPlayers := table.MaxPlayers
	if maxPlayers > 0 {
		newMaxPlayers = maxPlayers
		if newMaxPlayers > 8 {
			newMaxPlayers = 8
		}
	}

	for _, other := range st.Blackjack.Tables {
		if other.ID == table.ID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(other.Name), strings.TrimSpace(newName)) {
			return false, "A table with that name already exists."
		}
	}
	if newPrivate && strings.TrimSpace(newPassword) == "" {
		return false, "Private tables must have a password."
	}
	if table.Occupancy() > newMaxPlayers {
		return false, "Reduce player count before lowering max players."
	}

	table.Name = newName
	table.IsPrivate = newPrivate
	table.Password = newPassword
	if !table.IsPrivate {
		table.Password = ""
	}
	table.MaxPlayers = newMaxPlayers
	if minBet > 0 {
		table.MinBet = minBet
	}
	if maxBet != nil {
		capped := *maxBet
		if capped < table.MinBet {
			capped = table.MinBet
		}
		table.MaxBet = &capped
	}

	for _, player := range table.Players {
		state := table.State(player)
		if state.Bet <= 0 {
			continue
		}
		if ok, _ := m.betAllowed(table, state.Bet); !ok {
			state.Bet = 0
			state.Status = models.BJWaiting
			state.Ready = false
			state.Message = "Your bet was cleared due to updated table limits."
		}
	}

	table.LastUpdated = m.now().Unix()
	return true, "Table settings updated."
}

// UpdateGlobalSettings tunes the platform-wide timeout rules.
func (m *Manager) UpdateGlobalSettings(st *models.State, turnTimeoutSeconds int, timeoutPenaltyPercent float64) (bool, string) {
	settings := &st.Blackjack.Settings
	if turnTimeoutSeconds < 5 {
		turnTimeoutSeconds = 5
	}
	settings.TurnTimeoutSeconds = turnTimeoutSeconds
	if timeoutPenaltyPercent < 0 {
		timeoutPenaltyPercent = 0
	}
	if timeoutPenaltyPercent > 100 {
		timeoutPenaltyPercent = 100
	}
	settings.TimeoutPenaltyPercent = timeoutPenaltyPercent
	return true, "Multiplayer timeout settings updated."
}

func (m *Manager) betAllowed(table *models.BlackjackTable, bet money.Amount) (bool, string) {
	if bet < table.MinBet {
		return false, fmt.Sprintf("Minimum table bet is $%s.", table.MinBet)
	}
	if table.MaxBet != nil && bet > *table.MaxBet {
		return false, fmt.Sprintf("Maximum table bet is $%s.", *table.MaxBet)
	}
	return true, ""
}

func betweenRounds(phase models.BlackjackPhase) bool {
	switch phase {
	case models.PhaseWaitingForBets, models.PhaseFinished, models.PhaseWaitingForPlayers:
		return true
	}
	return false
}

// SetBet stages the player's wager for the next round and clears any
// previous round leftovers from their state.
func (m *Manager) SetBet(st *models.State, tableID int, player string, bet money.Amount) (bool, string) {
	if bet <= 0 {
		return false, "Bet must be greater than $0."
	}
	m.EnforceTimeouts(st)
	table := tableByID(st, tableID)
	if table == nil {
		return false, "Table not found."
	}
	if !table.HasPlayer(player) {
		return false, "Join this table first."
	}
	if table.InProgress {
		return false, "Round already in progress."
	}
	if !betweenRounds(table.Phase) {
		return false, "Cannot place a bet right now."
	}
	if ok, reason := m.betAllowed(table, bet); !ok {
		return false, reason
	}

	state := table.State(player)
	*state = models.BlackjackPlayer{
		Bet:    bet,
		Status: models.BJBetReady,
		Cards:  []models.Card{},
	}
	if table.Phase == models.PhaseWaitingForPlayers {
		table.Phase = models.PhaseWaitingForBets
	}
	table.LastUpdated = m.now().Unix()
	return true, fmt.Sprintf("Bet set to $%s.", bet)
}

// SetReady toggles readiness. When the last seated player readies
// up the round starts immediately; the third return reports that.
func (m *Manager) SetReady(st *models.State, tableID int, player string, ready bool) (bool, string, bool) {
	m.EnforceTimeouts(st)
	table := tableByID(st, tableID)
	if table == nil {
		return false, "Table not found.", false
	}
	if !table.HasPlayer(player) {
		return false, "Join this table first.", false
	}
	if table.InProgress {
		return false, "Round already in progress.", false
	}
	if !betweenRounds(table.Phase) {
		return false, "Cannot change ready state right now.", false
	}

	state := table.State(player)
	if ready {
		if state.Bet <= 0 {
			return false, "Set your bet before marking ready.", false
		}
		if ok, reason := m.betAllowed(table, state.Bet); !ok {
			return false, reason, false
		}
		state.Status = models.BJReady
	} else {
		state.Status = models.BJWaiting
	}
	state.Ready = ready
	state.Message = ""
	table.LastUpdated = m.now().Unix()

	readyCount := 0
	for _, name := range table.Players {
		if table.State(name).Ready {
			readyCount++
		}
	}
	if len(table.Players) > 0 && readyCount == len(table.Players) {
		ok, msg := m.startRound(st, table)
		if !ok {
			return false, msg, false
		}
		return true, msg, true
	}

	if ready {
		return true, "You are ready.", false
	}
	return true, "You are no longer ready.", false
}

// StartRound lets a seated player force the start once everyone is
// ready.
func (m *Manager) StartRound(st *models.State, tableID int, startedBy string) (bool, string) {
	m.EnforceTimeouts(st)
	table := tableByID(st, tableID)
	if table == nil {
		return false, "Table not found."
	}
	if !table.HasPlayer(startedBy) {
		return false, "Join this table first."
	}
	if table.InProgress {
		return false, "Round already in progress."
	}
	if len(table.Players) == 0 {
		return false, "No players are seated."
	}
	for _, name := range table.Players {
		if !table.State(name).Ready {
			return false, "All seated players must be ready before the round starts."
		}
	}
	return m.startRound(st, table)
}

// startRound validates every bet, debits all stakes up front, deals
// two cards around and opens the first turn. Naturals skip the turn
// order entirely.
func (m *Manager) startRound(st *models.State, table *models.BlackjackTable) (bool, string) {
	active := make([]string, 0, len(table.Players))
	for _, name := range table.Players {
		state := table.State(name)
		if state.Bet <= 0 {
			return false, fmt.Sprintf("%s must set a bet before getting ready.", name)
		}
		if ok, reason := m.betAllowed(table, state.Bet); !ok {
			return false, fmt.Sprintf("%s: %s", name, reason)
		}
		account, ok := st.Accounts[name]
		if !ok {
			return false, fmt.Sprintf("Account for %s was not found.", name)
		}
		if !account.CanAfford(state.Bet) {
			return false, fmt.Sprintf("%s cannot cover bet $%s.", name, state.Bet)
		}
		active = append(active, name)
	}
	if len(active) == 0 {
		return false, "At least one player must set a bet."
	}

	for _, name := range active {
		state := table.State(name)
		st.Accounts[name].Debit(state.Bet)
	}

	table.Round++
	table.InProgress = true
	table.Phase = models.PhasePlayerTurns
	table.Deck = m.newDeck()
	table.DealerCards = []models.Card{}
	table.TurnOrder = []string{}
	table.TurnIndex = 0
	table.TurnStarted = 0
	table.LastUpdated = m.now().Unix()

	table.DealerCards = append(table.DealerCards, m.draw(table), m.draw(table))

	for _, name := range table.Players {
		state := table.State(name)
		bet := state.Bet
		*state = models.BlackjackPlayer{Bet: bet, Cards: []models.Card{}}
		if bet <= 0 {
			state.Status = models.BJSittingOut
			continue
		}
		state.Cards = append(state.Cards, m.draw(table), m.draw(table))
		state.Natural = IsNatural(state.Cards)
		if state.Natural {
			state.Status = models.BJNatural
		} else {
			state.Status = models.BJPlaying
			table.TurnOrder = append(table.TurnOrder, name)
		}
	}

	if len(table.TurnOrder) == 0 {
		m.finishRound(st, table)
	} else {
		table.TurnStarted = m.now().Unix()
		if current := m.currentTurn(table); current != "" {
			table.AppendHistory(fmt.Sprintf("Round %d started. %s's turn.", table.Round, current))
		} else {
			table.AppendHistory(fmt.Sprintf("Round %d started.", table.Round))
		}
	}
	return true, fmt.Sprintf("Round %d started.", table.Round)
}

// draw takes the top deck card, reshuffling a fresh deck when it
// runs dry.
func (m *Manager) draw(table *models.BlackjackTable) models.Card {
	if len(table.Deck) == 0 {
		table.Deck = m.newDeck()
	}
	card := table.Deck[len(table.Deck)-1]
	table.Deck = table.Deck[:len(table.Deck)-1]
	return card
}

func (m *Manager) currentTurn(table *models.BlackjackTable) string {
	if table.TurnIndex < 0 || table.TurnIndex >= len(table.TurnOrder) {
		return ""
	}
	return table.TurnOrder[table.TurnIndex]
}

// advanceTurn moves to the next seat and returns its player, or ""
// when the round passes to the dealer.
func (m *Manager) advanceTurn(table *models.BlackjackTable) string {
	table.TurnIndex++
	table.TurnStarted = m.now().Unix()
	if table.TurnIndex >= len(table.TurnOrder) {
		table.TurnStarted = 0
		return ""
	}
	return m.currentTurn(table)
}

// Action applies hit or stand for the acting player. A hit to 21
// stands automatically; a bust passes the turn.
func (m *Manager) Action(st *models.State, tableID int, player, action string) (bool, string) {
	if action != "hit" && action != "stand" {
		return false, "Invalid action."
	}
	m.EnforceTimeouts(st)
	table := tableByID(st, tableID)
	if table == nil {
		return false, "Table not found."
	}
	if table.Phase != models.PhasePlayerTurns || !table.InProgress {
		return false, "No active player turn."
	}
	current := m.currentTurn(table)
	if current != player {
		if current == "" {
			return false, "Turn state is unavailable."
		}
		return false, fmt.Sprintf("It is currently %s's turn.", current)
	}
	state, ok := table.States[player]
	if !ok {
		return false, "Player state not found."
	}
	if state.Status != models.BJPlaying {
		return false, "You cannot act right now."
	}

	if action == "hit" {
		state.Cards = append(state.Cards, m.draw(table))
		total := HandTotal(state.Cards)
		table.AppendHistory(fmt.Sprintf("%s hit.", player))
		switch {
		case total > 21:
			state.Status = models.BJBusted
			table.AppendHistory(fmt.Sprintf("%s busted with %d.", player, total))
			if next := m.advanceTurn(table); next != "" {
				table.AppendHistory(fmt.Sprintf("It is now %s's turn.", next))
			}
		case total == 21:
			state.Status = models.BJStood
			if next := m.advanceTurn(table); next != "" {
				table.AppendHistory(fmt.Sprintf("It is now %s's turn.", next))
			}
		default:
			table.TurnStarted = m.now().Unix()
		}
	} else {
		state.Status = models.BJStood
		table.AppendHistory(fmt.Sprintf("%s stood.", player))
		if next := m.advanceTurn(table); next != "" {
			table.AppendHistory(fmt.Sprintf("It is now %s's turn.", next))
		}
	}

	if m.currentTurn(table) == "" {
		table.AppendHistory("Dealer turn.")
		m.finishRound(st, table)
	} else {
		table.LastUpdated = m.now().Unix()
	}
	return true, "Action submitted."
}

// finishRound draws the dealer to 17 and settles every seated bet.
// Winners are paid 2x, naturals 5:2, pushes get the bet back; all
// payouts round in the house's favor.
func (m *Manager) finishRound(st *models.State, table *models.BlackjackTable) {
	for HandTotal(table.DealerCards) < dealerStandTotal {
		table.DealerCards = append(table.DealerCards, m.draw(table))
	}
	dealerTotal := HandTotal(table.DealerCards)
	dealerNatural := IsNatural(table.DealerCards)

	for _, name := range table.Players {
		state, ok := table.States[name]
		if !ok || state.Bet <= 0 {
			continue
		}
		bet := state.Bet
		playerTotal := HandTotal(state.Cards)

		result := models.BJResultLoss
		var payout money.Amount
		won := false
		message := "You lose this round."

		switch {
		case state.Status == models.BJBusted || playerTotal > 21:
			message = fmt.Sprintf("Busted with %d. You lose.", playerTotal)
		case dealerTotal > 21:
			if state.Natural && !dealerNatural {
				result = models.BJResultBlackjack
				payout = money.MulDiv(bet, 5, 2, money.RoundDown)
				won = true
				message = fmt.Sprintf("Dealer busted with %d. Blackjack payout 3:2.", dealerTotal)
			} else {
				result = models.BJResultWin
				payout = bet * 2
				won = true
				message = fmt.Sprintf("Dealer busted with %d. You win.", dealerTotal)
			}
		case state.Natural && !dealerNatural:
			result = models.BJResultBlackjack
			payout = money.MulDiv(bet, 5, 2, money.RoundDown)
			won = true
			message = "Blackjack! You win 3:2."
		case dealerNatural && !state.Natural:
			message = "Dealer blackjack. You lose."
		case playerTotal > dealerTotal:
			result = models.BJResultWin
			payout = bet * 2
			won = true
			message = fmt.Sprintf("Your %d beats dealer %d.", playerTotal, dealerTotal)
		case playerTotal == dealerTotal:
			result = models.BJResultPush
			payout = bet
			message = fmt.Sprintf("Push at %d. Bet returned.", playerTotal)
		default:
			message = fmt.Sprintf("Dealer %d beats your %d.", dealerTotal, playerTotal)
		}

		if account, ok := st.Accounts[name]; ok {
			if payout > 0 {
				account.Credit(payout)
			}
			account.RecordResult(models.GameBlackjack, bet, payout, won)
		}
		state.Payout = payout
		state.Result = result
		state.Message = message
		state.Status = models.BJFinished
	}

	table.Phase = models.PhaseFinished
	table.InProgress = false
	table.TurnOrder = []string{}
	table.TurnIndex = 0
	table.TurnStarted = 0
	table.LastUpdated = m.now().Unix()
	table.AppendHistory(fmt.Sprintf("Dealer final total: %d. Round finished.", dealerTotal))

	m.promotePending(st, table)
}

// promotePending seats queued players once the round is over.
func (m *Manager) promotePending(st *models.State, table *models.BlackjackTable) {
	if table.InProgress || len(table.Pending) == 0 {
		return
	}
	remaining := make([]string, 0, len(table.Pending))
	promoted := false
	for _, name := range table.Pending {
		if table.HasPlayer(name) {
			continue
		}
		if len(table.Players) >= table.MaxPlayers {
			remaining = append(remaining, name)
			continue
		}
		if _, ok := st.Accounts[name]; !ok {
			continue
		}
		table.Players = append(table.Players, name)
		table.States[name] = &models.BlackjackPlayer{Status: models.BJWaiting, Cards: []models.Card{}}
		table.AppendHistory(fmt.Sprintf("%s joined from queue for the next hand.", name))
		promoted = true
	}
	table.Pending = remaining
	if promoted {
		table.Phase = models.PhaseWaitingForBets
		table.LastUpdated = m.now().Unix()
		if table.Host == "" {
			table.Host = table.Players[0]
		}
	}
}

// ejectForTimeout removes the player entirely: the staked bet is
// forfeited and a penalty percentage of it is charged on top,
// rounded in the house's favor. Charged exactly once because the
// player leaves the table here.
func (m *Manager) ejectForTimeout(st *models.State, table *models.BlackjackTable, player string) {
	if !table.HasPlayer(player) {
		return
	}
	state := table.State(player)
	bet := state.Bet
	penalty := money.Percent(bet, st.Blackjack.Settings.TimeoutPenaltyPercent, money.RoundDown)
	if account, ok := st.Accounts[player]; ok {
		if penalty > 0 {
			account.Balance -= penalty
		}
		account.RecordResult(models.GameBlackjack, bet+penalty, 0, false)
	}
	state.Penalty = penalty
	state.Status = models.BJTimedOut
	state.Result = models.BJResultLoss
	state.Payout = 0
	state.Message = fmt.Sprintf("Timed out and ejected. Penalty charged: $%s.", penalty)
	log.Printf("[BLACKJACK] %s timed out at table %d, penalty $%s", player, table.ID, penalty)

	table.Players = removeName(table.Players, player)
	delete(table.States, player)
	table.TurnOrder = removeName(table.TurnOrder, player)
	if table.Host == player {
		table.Host = ""
		if len(table.Players) > 0 {
			table.Host = table.Players[0]
		}
	}
	if len(table.Players) == 0 {
		m.resetTable(st, table)
		return
	}
	table.AppendHistory(fmt.Sprintf("%s timed out, was ejected, and penalized $%s.", player, penalty))
}

// EjectForDisconnect drops a vanished player mid-round. Their bet is
// already in the round and is recorded as a loss; no penalty
// applies.
func (m *Manager) EjectForDisconnect(st *models.State, table *models.BlackjackTable, player string) {
	if !table.HasPlayer(player) {
		return
	}
	state := table.State(player)
	if state.Bet > 0 {
		if account, ok := st.Accounts[player]; ok {
			account.RecordResult(models.GameBlackjack, state.Bet, 0, false)
		}
	}

	removedPos := -1
	for i, n := range table.TurnOrder {
		if n == player {
			removedPos = i
			break
		}
	}
	table.Players = removeName(table.Players, player)
	delete(table.States, player)
	table.TurnOrder = removeName(table.TurnOrder, player)
	if removedPos >= 0 && removedPos < table.TurnIndex {
		table.TurnIndex--
	}
	if table.TurnIndex < 0 {
		table.TurnIndex = 0
	}
	if table.Host == player {
		table.Host = ""
		if len(table.Players) > 0 {
			table.Host = table.Players[0]
		}
	}
	table.AppendHistory(fmt.Sprintf("%s disconnected unexpectedly and was removed from the hand.", player))
	log.Printf("[BLACKJACK] %s disconnected from table %d", player, table.ID)

	if len(table.Players) == 0 {
		m.resetTable(st, table)
		return
	}
	if table.InProgress {
		if m.currentTurn(table) == "" {
			table.AppendHistory("Dealer turn.")
			m.finishRound(st, table)
		} else {
			// The turn may have passed to the next player; their
			// clock starts now, not when the leaver's turn began.
			now := m.now().Unix()
			table.TurnStarted = now
			table.LastUpdated = now
		}
	}
}

// EnforceTimeouts ejects any player who has been sitting on their
// turn past the configured timeout. Called at the top of every
// operation so a stalled table heals on the next touch.
func (m *Manager) EnforceTimeouts(st *models.State) bool {
	changed := false
	timeout := int64(st.Blackjack.Settings.TurnTimeoutSeconds)
	if timeout < 5 {
		timeout = 5
	}
	now := m.now().Unix()
	for _, table := range st.Blackjack.Tables {
		if table.Phase != models.PhasePlayerTurns || !table.InProgress {
			continue
		}
		if table.TurnStarted <= 0 {
			table.TurnStarted = now
			continue
		}
		if now-table.TurnStarted < timeout {
			continue
		}
		timedOut := m.currentTurn(table)
		if timedOut == "" {
			continue
		}
		m.ejectForTimeout(st, table, timedOut)
		changed = true
		if table.Phase != models.PhasePlayerTurns {
			continue
		}
		if m.currentTurn(table) == "" {
			table.AppendHistory("Dealer turn.")
			m.finishRound(st, table)
		} else {
			table.TurnStarted = now
			table.LastUpdated = now
		}
	}
	return changed
}

// Sweep runs disconnect ejection for players whose activity
// heartbeat went stale, then promotes queued joins, then enforces
// turn timeouts. Disconnects go first so a vanished player forfeits
// only their bet rather than also picking up a timeout penalty.
// Returns whether the state changed.
func (m *Manager) Sweep(st *models.State, activityTTL int64) bool {
	changed := false
	now := m.now().Unix()
	for _, table := range st.Blackjack.Tables {
		if !table.InProgress {
			continue
		}
		for _, name := range append([]string{}, table.Players...) {
			if st.ActiveWithin(name, now, activityTTL) {
				continue
			}
			m.EjectForDisconnect(st, table, name)
			changed = true
		}
	}
	for _, table := range st.Blackjack.Tables {
		if !table.InProgress && len(table.Pending) > 0 {
			m.promotePending(st, table)
			changed = true
		}
	}
	if m.EnforceTimeouts(st) {
		changed = true
	}
	return changed
}

func removeName(names []string, target string) []string {
	out := names[:0]
	for _, n := range names {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}
