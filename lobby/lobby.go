// Package lobby orchestrates the poker tables: seating and buy-ins,
// readiness, starting hands, driving bot seats, settling finished
// hands into balances and sweeping out stale players. Every operation
// mutates a state loaded under the store lock.
package lobby

import (
	"fmt"
	"log"
	"time"

	"github.com/thoas/go-funk"

	"github.com/iek-bit/Gambly/bots"
	"github.com/iek-bit/Gambly/engine"
	"github.com/iek-bit/Gambly/models"
	"github.com/iek-bit/Gambly/money"
)

// botDriveLimit bounds the synchronous bot loop so a policy bug can
// never spin an operation forever.
const botDriveLimit = 512

var botNames = []string{
	"Bot Vega", "Bot Maple", "Bot Castor", "Bot Juno", "Bot Rook",
	"Bot Ember", "Bot Sable", "Bot Piper",
}

// Manager executes poker table operations. The clock is injectable
// for timeout tests; the action limiter is process-local and never
// persisted.
type Manager struct {
	now     func() time.Time
	limiter *ActionLimiter
}

func NewManager() *Manager {
	return &Manager{
		now:     time.Now,
		limiter: NewActionLimiter(DefaultLimiterConfig),
	}
}

// NewManagerAt uses a fixed clock source.
func NewManagerAt(now func() time.Time) *Manager {
	m := NewManager()
	m.now = now
	return m
}

func tableByID(st *models.State, id int) *models.PokerTable {
	for _, t := range st.Poker.Tables {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func handLive(t *models.PokerTable) bool {
	return t.Hand != nil && !t.Hand.Finished()
}

// CreateTable adds a table with a normalized config. Zero blinds and
// buy-in bounds fall back to sane defaults derived from the big
// blind.
func (m *Manager) CreateTable(st *models.State, name string, cfg models.PokerTableConfig) *models.PokerTable {
	if cfg.BigBlind <= 0 {
		cfg.BigBlind = 20
	}
	if cfg.SmallBlind <= 0 || cfg.SmallBlind > cfg.BigBlind {
		cfg.SmallBlind = money.Max(1, cfg.BigBlind/2)
	}
	if cfg.MinRaise <= 0 {
		cfg.MinRaise = cfg.BigBlind
	}
	if cfg.MinBuyIn <= 0 {
		cfg.MinBuyIn = cfg.BigBlind * 20
	}
	if cfg.MaxBuyIn < cfg.MinBuyIn {
		cfg.MaxBuyIn = cfg.BigBlind * 200
	}
	if cfg.MaxSeats < 2 {
		cfg.MaxSeats = 6
	}
	if cfg.MaxSeats > 9 {
		cfg.MaxSeats = 9
	}
	if cfg.TurnTimeoutSeconds <= 0 {
		cfg.TurnTimeoutSeconds = 30
	}
	if cfg.TurnTimeoutSeconds < 5 {
		cfg.TurnTimeoutSeconds = 5
	}

	id := st.Poker.NextID
	for _, t := range st.Poker.Tables {
		if t.ID >= id {
			id = t.ID + 1
		}
	}
	st.Poker.NextID = id + 1
	if name == "" {
		name = fmt.Sprintf("Table %d", id)
	}

	table := &models.PokerTable{
		ID:          id,
		Name:        name,
		Config:      cfg,
		Seats:       []*models.Seat{},
		Pending:     []models.PendingJoin{},
		DealerIndex: -1,
		History:     []string{},
		LastUpdated: m.now().Unix(),
	}
	st.Poker.Tables = append(st.Poker.Tables, table)
	return table
}

// UpdateTableSettings replaces an idle table's config, normalized
// the same way CreateTable normalizes a new one. Seated players must
// fit under the new seat limit.
func (m *Manager) UpdateTableSettings(st *models.State, tableID int, cfg models.PokerTableConfig) (bool, string) {
	table := tableByID(st, tableID)
	if table == nil {
		return false, "Table not found."
	}
	if handLive(table) {
		return false, "Cannot edit table settings during an active hand."
	}

	if cfg.BigBlind <= 0 {
		cfg.BigBlind = table.Config.BigBlind
	}
	if cfg.SmallBlind <= 0 || cfg.SmallBlind > cfg.BigBlind {
		cfg.SmallBlind = money.Max(1, cfg.BigBlind/2)
	}
	if cfg.MinRaise <= 0 {
		cfg.MinRaise = cfg.BigBlind
	}
	if cfg.MinBuyIn <= 0 {
		cfg.MinBuyIn = table.Config.MinBuyIn
	}
	if cfg.MaxBuyIn < cfg.MinBuyIn {
		cfg.MaxBuyIn = cfg.MinBuyIn
	}
	if cfg.MaxSeats < 2 {
		cfg.MaxSeats = table.Config.MaxSeats
	}
	if cfg.MaxSeats > 9 {
		cfg.MaxSeats = 9
	}
	if cfg.TurnTimeoutSeconds <= 0 {
		cfg.TurnTimeoutSeconds = table.Config.TurnTimeoutSeconds
	}
	if cfg.TurnTimeoutSeconds < 5 {
		cfg.TurnTimeoutSeconds = 5
	}
	if cfg.IsPrivate && cfg.Password == "" {
		return false, "Private tables must have a password."
	}
	if table.Occupancy() > cfg.MaxSeats {
		return false, "Reduce player count before lowering max seats."
	}

	table.Config = cfg
	table.LastUpdated = m.now().Unix()
	table.AppendHistory("Table settings updated.")
	return true, "Table settings updated."
}

// DeleteTable removes an idle table and refunds every human seat.
func (m *Manager) DeleteTable(st *models.State, id int) (bool, string) {
	for i, t := range st.Poker.Tables {
		if t.ID != id {
			continue
		}
		if handLive(t) {
			return false, "Cannot delete a table while a hand is in progress."
		}
		for _, seat := range t.Seats {
			m.refund(st, seat.Name, seat.Stack, seat.IsBot)
		}
		for _, pending := range t.Pending {
			m.refund(st, pending.Name, pending.Stack, false)
		}
		st.Poker.Tables = append(st.Poker.Tables[:i], st.Poker.Tables[i+1:]...)
		return true, fmt.Sprintf("Table %d deleted.", id)
	}
	return false, "Table not found."
}

func (m *Manager) refund(st *models.State, name string, amount money.Amount, isBot bool) {
	if isBot || amount <= 0 {
		return
	}
	if account, ok := st.Accounts[name]; ok {
		account.Credit(amount)
	}
}

// Join debits the buy-in and seats the player, or queues them while a
// hand is live. Sitting at an idle table elsewhere is auto-left; a
// live hand elsewhere blocks the move.
func (m *Manager) Join(st *models.State, tableID int, player string, buyIn money.Amount, password string) (bool, string) {
	account, ok := st.Accounts[player]
	if !ok {
		return false, "You must be signed in to join."
	}
	dest := tableByID(st, tableID)
	if dest == nil {
		return false, "Table not found."
	}
	if dest.Config.IsPrivate && dest.Config.Password != "" && password != dest.Config.Password {
		return false, "Incorrect table password."
	}
	if dest.SeatByName(player) != nil {
		return true, "Already seated at this table."
	}
	if funk.Contains(pendingNames(dest), player) {
		return true, "You are already queued for this table."
	}

	for _, table := range st.Poker.Tables {
		if table.ID == tableID {
			continue
		}
		if table.SeatByName(player) == nil && !funk.Contains(pendingNames(table), player) {
			continue
		}
		if handLive(table) {
			return false, "Leave your current active table before joining another."
		}
		m.unseat(st, table, player)
	}

	if buyIn < dest.Config.MinBuyIn {
		return false, fmt.Sprintf("Minimum buy-in is $%s.", dest.Config.MinBuyIn)
	}
	if buyIn > dest.Config.MaxBuyIn {
		return false, fmt.Sprintf("Maximum buy-in is $%s.", dest.Config.MaxBuyIn)
	}
	if dest.Occupancy() >= dest.Config.MaxSeats {
		return false, "Table is full."
	}
	if !account.Debit(buyIn) {
		return false, "Insufficient balance for this buy-in."
	}

	if handLive(dest) {
		dest.Pending = append(dest.Pending, models.PendingJoin{Name: player, Stack: buyIn})
		dest.AppendHistory(fmt.Sprintf("%s queued to join with $%s.", player, buyIn))
		dest.LastUpdated = m.now().Unix()
		return true, "Hand in progress. You are queued to join at the next hand."
	}

	dest.Seats = append(dest.Seats, &models.Seat{Name: player, Stack: buyIn})
	if dest.Host == "" {
		dest.Host = player
	}
	dest.AppendHistory(fmt.Sprintf("%s joined with $%s.", player, buyIn))
	dest.LastUpdated = m.now().Unix()
	return true, fmt.Sprintf("Joined table %d with $%s.", tableID, buyIn)
}

func pendingNames(t *models.PokerTable) []string {
	names := make([]string, 0, len(t.Pending))
	for _, p := range t.Pending {
		names = append(names, p.Name)
	}
	return names
}

// AddBots seats up to n automated players with a max buy-in stack.
// Bot chips live only on the table; no account is involved.
func (m *Manager) AddBots(st *models.State, tableID int, n int) (bool, string) {
	table := tableByID(st, tableID)
	if table == nil {
		return false, "Table not found."
	}
	if handLive(table) {
		return false, "Cannot add bots while a hand is in progress."
	}
	taken := make([]string, 0, len(table.Seats))
	for _, seat := range table.Seats {
		taken = append(taken, seat.Name)
	}
	added := 0
	for _, name := range botNames {
		if added >= n {
			break
		}
		if table.Occupancy() >= table.Config.MaxSeats {
			break
		}
		if funk.ContainsString(taken, name) {
			continue
		}
		table.Seats = append(table.Seats, &models.Seat{
			Name:  name,
			IsBot: true,
			Stack: table.Config.MaxBuyIn,
			Ready: true,
		})
		taken = append(taken, name)
		added++
	}
	if added == 0 {
		return false, "No free seats for bots."
	}
	table.AppendHistory(fmt.Sprintf("%d bot(s) sat down.", added))
	table.LastUpdated = m.now().Unix()
	return true, fmt.Sprintf("Added %d bot(s).", added)
}

// Leave removes the player. During a live hand they are folded out
// and flagged to be removed with a refund once the hand concludes.
func (m *Manager) Leave(st *models.State, tableID int, player string) (bool, string) {
	table := tableByID(st, tableID)
	if table == nil {
		return false, "Table not found."
	}
	for i, pending := range table.Pending {
		if pending.Name != player {
			continue
		}
		m.refund(st, player, pending.Stack, false)
		table.Pending = append(table.Pending[:i], table.Pending[i+1:]...)
		table.AppendHistory(fmt.Sprintf("%s left the join queue.", player))
		table.LastUpdated = m.now().Unix()
		return true, "Removed from queue, buy-in refunded."
	}
	seat := table.SeatByName(player)
	if seat == nil {
		return true, "You are not at this table."
	}

	if handLive(table) && table.Hand.PlayerByName(player) != nil {
		engine.Forfeit(table.Hand, player)
		seat.Leaving = true
		table.AppendHistory(fmt.Sprintf("%s is leaving and was folded.", player))
		m.driveBots(st, table)
		return true, "Folded. You will leave the table when the hand ends."
	}

	m.unseat(st, table, player)
	return true, fmt.Sprintf("Left table %d, stack refunded.", tableID)
}

// unseat removes the seat outright and refunds its remaining stack.
func (m *Manager) unseat(st *models.State, table *models.PokerTable, player string) {
	idx := table.SeatIndex(player)
	if idx < 0 {
		return
	}
	seat := table.Seats[idx]
	m.refund(st, player, seat.Stack, seat.IsBot)
	table.Seats = append(table.Seats[:idx], table.Seats[idx+1:]...)
	if idx <= table.DealerIndex {
		table.DealerIndex--
	}
	if table.Host == player {
		table.Host = ""
		for _, s := range table.Seats {
			if !s.IsBot {
				table.Host = s.Name
				break
			}
		}
	}
	table.AppendHistory(fmt.Sprintf("%s left the table.", player))
	table.LastUpdated = m.now().Unix()
}

// SetReady toggles readiness. Bots are always ready; once every
// funded seat is ready and at least two can play, a hand starts and
// the bot seats are driven until a human is on turn or the hand ends.
func (m *Manager) SetReady(st *models.State, tableID int, player string, ready bool) (bool, string, bool) {
	table := tableByID(st, tableID)
	if table == nil {
		return false, "Table not found.", false
	}
	if handLive(table) {
		return false, "Hand already in progress.", false
	}
	seat := table.SeatByName(player)
	if seat == nil {
		return false, "Join this table first.", false
	}
	if seat.Stack <= 0 {
		return false, "You have no chips. Rejoin with a fresh buy-in.", false
	}
	seat.Ready = ready
	table.LastUpdated = m.now().Unix()

	funded := 0
	allReady := true
	for _, s := range table.Seats {
		if s.Stack <= 0 {
			continue
		}
		funded++
		if !s.IsBot && !s.Ready {
			allReady = false
		}
	}
	if funded >= 2 && allReady {
		ok, msg := m.startHand(st, table)
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

// StartHand forces the next hand on an idle table, used for tables
// that are all bots and have nobody to ready up.
func (m *Manager) StartHand(st *models.State, tableID int) (bool, string) {
	table := tableByID(st, tableID)
	if table == nil {
		return false, "Table not found."
	}
	if handLive(table) {
		return false, "Hand already in progress."
	}
	return m.startHand(st, table)
}

// startHand advances the button, snapshots every stack and deals a
// fresh hand whose player indexes line up with the seat indexes.
func (m *Manager) startHand(st *models.State, table *models.PokerTable) (bool, string) {
	table.DealerIndex = nextFundedSeat(table, table.DealerIndex)
	if table.DealerIndex < 0 {
		return false, "Not enough funded players."
	}

	stacks := make([]engine.PlayerStack, 0, len(table.Seats))
	for _, seat := range table.Seats {
		seat.StartStack = seat.Stack
		seat.LastNet = 0
		stacks = append(stacks, engine.PlayerStack{Name: seat.Name, Stack: seat.Stack})
	}

	h, err := engine.NewHand(stacks, engine.Options{
		SmallBlind:  table.Config.SmallBlind,
		BigBlind:    table.Config.BigBlind,
		MinRaise:    table.Config.MinRaise,
		DealerIndex: table.DealerIndex,
	})
	if err != nil {
		return false, "Not enough funded players."
	}

	table.Hand = h
	table.HandCount++
	table.TurnStarted = m.now().Unix()
	table.LastUpdated = m.now().Unix()
	table.AppendHistory(fmt.Sprintf("Hand %d started, dealer %s.", table.HandCount, table.Seats[table.DealerIndex].Name))
	log.Printf("[LOBBY] table %d hand %d started with %d seats", table.ID, table.HandCount, len(table.Seats))

	m.driveBots(st, table)
	return true, fmt.Sprintf("Hand %d started.", table.HandCount)
}

// nextFundedSeat walks clockwise from start to the next seat with
// chips, or -1 when fewer than the blinds can be covered.
func nextFundedSeat(table *models.PokerTable, start int) int {
	count := len(table.Seats)
	if count == 0 {
		return -1
	}
	if start < 0 || start >= count {
		start = count - 1
	}
	for offset := 1; offset <= count; offset++ {
		idx := (start + offset) % count
		if table.Seats[idx].Stack > 0 {
			return idx
		}
	}
	return -1
}

// Action applies one player action, re-runs the bot drive and, when
// that finishes the hand, reconciles it into balances and stats.
func (m *Manager) Action(st *models.State, tableID int, player string, act models.Action) (bool, string) {
	if !m.limiter.Allow(player) {
		return false, "You are acting too quickly. Slow down."
	}
	table := tableByID(st, tableID)
	if table == nil {
		return false, "Table not found."
	}
	if !handLive(table) {
		return false, "No hand in progress."
	}

	ok, msg := engine.Apply(table.Hand, player, act)
	if !ok {
		return false, msg
	}
	table.TurnStarted = m.now().Unix()
	table.LastUpdated = m.now().Unix()
	m.driveBots(st, table)
	return true, msg
}

// LegalActions exposes the engine's view for the table's live hand.
func (m *Manager) LegalActions(st *models.State, tableID int, player string) engine.LegalActions {
	table := tableByID(st, tableID)
	if table == nil || table.Hand == nil {
		return engine.LegalActions{Kinds: []models.ActionKind{}}
	}
	return engine.Legal(table.Hand, player)
}

// driveBots plays every leading bot seat synchronously until a human
// is on turn or the hand finishes. A bot whose chosen action is
// rejected is folded out so it can never wedge the loop.
func (m *Manager) driveBots(st *models.State, table *models.PokerTable) {
	h := table.Hand
	if h == nil {
		return
	}
	for i := 0; i < botDriveLimit && !h.Finished(); i++ {
		actor := h.ActingPlayer()
		if actor == nil {
			break
		}
		seat := table.SeatByName(actor.Name)
		if seat == nil || !seat.IsBot {
			break
		}
		act := bots.Choose(h, actor.Name, engine.Legal(h, actor.Name))
		if ok, reason := engine.Apply(h, actor.Name, act); !ok {
			log.Printf("[LOBBY] bot %s action rejected (%s), folding", actor.Name, reason)
			engine.Forfeit(h, actor.Name)
		}
	}
	table.TurnStarted = m.now().Unix()
	if h.Finished() {
		m.settle(st, table)
	}
}

// settle reconciles a finished hand: each seat's stack delta against
// its start-of-hand snapshot is the hand result. Winnings above the
// snapshot are paid out to the balance and the seat reverts to its
// snapshot; losses already left the stack. Bot chips stay on the
// table.
func (m *Manager) settle(st *models.State, table *models.PokerTable) {
	h := table.Hand
	if h == nil || h.Result == nil {
		return
	}
	for _, seat := range table.Seats {
		hp := h.PlayerByName(seat.Name)
		if hp == nil {
			continue
		}
		delta := hp.Stack - seat.StartStack
		seat.LastNet = delta

		if seat.IsBot {
			seat.Stack = hp.Stack
			continue
		}
		if delta > 0 {
			seat.Stack = seat.StartStack
			m.refund(st, seat.Name, delta, false)
		} else {
			seat.Stack = hp.Stack
		}
		if len(hp.Hole) > 0 {
			if account, ok := st.Accounts[seat.Name]; ok {
				account.RecordResult(models.GamePoker, hp.CommittedTotal, h.Result.Winnings[seat.Name], delta > 0)
			}
		}
	}

	for name, won := range h.Result.Winnings {
		table.AppendHistory(fmt.Sprintf("%s won $%s (%s).", name, won, h.Result.Type))
	}
	log.Printf("[LOBBY] table %d hand %d settled (%s)", table.ID, table.HandCount, h.Result.Type)

	table.Hand = nil
	table.TurnStarted = 0
	for _, seat := range table.Seats {
		if !seat.IsBot {
			seat.Ready = false
		}
	}
	m.afterHand(st, table)
}

// afterHand removes leaving seats with a refund and drains the join
// queue into free seats.
func (m *Manager) afterHand(st *models.State, table *models.PokerTable) {
	dealerName := ""
	if table.DealerIndex >= 0 && table.DealerIndex < len(table.Seats) {
		dealerName = table.Seats[table.DealerIndex].Name
	}
	kept := table.Seats[:0]
	for _, seat := range table.Seats {
		if seat.Leaving {
			m.refund(st, seat.Name, seat.Stack, seat.IsBot)
			table.AppendHistory(fmt.Sprintf("%s left the table.", seat.Name))
			continue
		}
		kept = append(kept, seat)
	}
	table.Seats = kept
	table.DealerIndex = table.SeatIndex(dealerName)

	remaining := table.Pending[:0]
	for _, pending := range table.Pending {
		if len(table.Seats) >= table.Config.MaxSeats {
			remaining = append(remaining, pending)
			continue
		}
		table.Seats = append(table.Seats, &models.Seat{Name: pending.Name, Stack: pending.Stack})
		table.AppendHistory(fmt.Sprintf("%s took a seat from the queue.", pending.Name))
	}
	table.Pending = remaining

	if table.Host == "" || table.SeatByName(table.Host) == nil {
		table.Host = ""
		for _, s := range table.Seats {
			if !s.IsBot {
				table.Host = s.Name
				break
			}
		}
	}
	table.LastUpdated = m.now().Unix()
}

// Sweep force-folds players who went silent or sat on their turn past
// the table timeout, then resumes the bot drive. Idle stale players
// are removed outright with a refund. Returns whether state changed.
func (m *Manager) Sweep(st *models.State, activityTTL int64) bool {
	changed := false
	now := m.now().Unix()
	for _, table := range st.Poker.Tables {
		if handLive(table) {
			tableChanged := false
			for _, seat := range table.Seats {
				if seat.IsBot || seat.Leaving {
					continue
				}
				if st.ActiveWithin(seat.Name, now, activityTTL) {
					continue
				}
				hp := table.Hand.PlayerByName(seat.Name)
				if hp == nil || hp.Folded {
					seat.Leaving = true
					tableChanged = true
					continue
				}
				engine.Forfeit(table.Hand, seat.Name)
				seat.Leaving = true
				table.AppendHistory(fmt.Sprintf("%s went inactive and was folded.", seat.Name))
				log.Printf("[LOBBY] %s inactive at table %d, folded out", seat.Name, table.ID)
				tableChanged = true
			}

			if table.Hand != nil && !table.Hand.Finished() {
				if actor := table.Hand.ActingPlayer(); actor != nil {
					seat := table.SeatByName(actor.Name)
					timeout := int64(table.Config.TurnTimeoutSeconds)
					if seat != nil && !seat.IsBot && table.TurnStarted > 0 && now-table.TurnStarted >= timeout {
						engine.Forfeit(table.Hand, actor.Name)
						table.AppendHistory(fmt.Sprintf("%s timed out and was folded.", actor.Name))
						log.Printf("[LOBBY] %s timed out at table %d, folded", actor.Name, table.ID)
						table.TurnStarted = now
						tableChanged = true
					}
				}
			}

			if tableChanged {
				m.driveBots(st, table)
				changed = true
			}
			continue
		}

		for _, seat := range append([]*models.Seat{}, table.Seats...) {
			if seat.IsBot {
				continue
			}
			if seat.Leaving || !st.ActiveWithin(seat.Name, now, activityTTL) {
				m.unseat(st, table, seat.Name)
				changed = true
			}
		}
		if len(table.Pending) > 0 {
			m.afterHand(st, table)
			changed = true
		}
	}
	return changed
}
