package engine

import (
	"errors"

	"github.com/iek-bit/Gambly/models"
	"github.com/iek-bit/Gambly/money"
)

// PlayerStack seeds one seat of a new hand.
type PlayerStack struct {
	Name  string
	Stack money.Amount
}

// Options configure a new hand. A zero MinRaise defaults to the big
// blind; a zero Seed shuffles randomly.
type Options struct {
	SmallBlind  money.Amount
	BigBlind    money.Amount
	MinRaise    money.Amount
	DealerIndex int
	Seed        int64
}

var ErrNotEnoughPlayers = errors.New("at least two players with chips are required")

// NewHand deals a fresh hand: hole cards first, then blinds posted
// capped at each stack, then action opens on the first player after
// the big blind. The returned hand may already be past preflop when
// the blinds put everyone all-in.
func NewHand(stacks []PlayerStack, opts Options) (*models.Hand, error) {
	players := make([]*models.HandPlayer, 0, len(stacks))
	for _, ps := range stacks {
		stack := ps.Stack
		if stack < 0 {
			stack = 0
		}
		players = append(players, models.NewHandPlayer(ps.Name, stack))
	}

	if countPlayers(players, hasChips) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	dealerIndex := opts.DealerIndex
	if dealerIndex < 0 || dealerIndex >= len(players) {
		dealerIndex = firstWithChips(players)
	}

	var deck *models.Deck
	if opts.Seed != 0 {
		deck = models.NewSeededDeck(opts.Seed)
	} else {
		deck = models.NewDeck()
	}

	minRaise := opts.MinRaise
	if minRaise == 0 {
		minRaise = opts.BigBlind
	}

	h := &models.Hand{
		Players:       players,
		SmallBlind:    money.Max(1, opts.SmallBlind),
		BigBlind:      money.Max(1, opts.BigBlind),
		TableMinRaise: money.Max(1, minRaise),
		MinRaise:      money.Max(1, minRaise),
		DealerIndex:   dealerIndex,
		Deck:          deck,
		Board:         []models.Card{},
		Street:        models.StreetPreflop,
		ActingIndex:   -1,
		PendingToAct:  []string{},
		ActionLog:     []models.ActionLogEntry{},
	}

	for round := 0; round < 2; round++ {
		for _, p := range h.Players {
			if p.Stack <= 0 {
				continue
			}
			card, err := deck.Deal()
			if err != nil {
				return nil, err
			}
			p.Hole = append(p.Hole, card)
		}
	}

	sbIndex := findNextSeated(h.Players, dealerIndex)
	bbIndex := findNextSeated(h.Players, sbIndex)
	h.Players[sbIndex].Commit(h.SmallBlind)
	h.Players[bbIndex].Commit(h.BigBlind)

	h.CurrentBet = h.Players[bbIndex].StreetCommit
	h.Pot = totalCommitted(h)
	h.PendingToAct = eligibleToAct(h)
	h.ActingIndex = findNextActive(h.Players, bbIndex)

	maybeAdvance(h)
	return h, nil
}

// Apply executes one action for playerName. The boolean reports
// acceptance; a rejected action leaves the hand untouched and the
// string explains why.
func Apply(h *models.Hand, playerName string, action models.Action) (bool, string) {
	if h == nil {
		return false, "No hand in progress."
	}
	if h.Street == models.StreetShowdown || h.Street == models.StreetFinished {
		return false, "Hand already finished."
	}
	actorIdx := h.ActingIndex
	if actorIdx < 0 || actorIdx >= len(h.Players) {
		return false, "No active player turn."
	}
	actor := h.Players[actorIdx]
	if actor.Name != playerName {
		return false, "Not your turn."
	}
	if actor.Folded || actor.AllIn {
		return false, "You cannot act right now."
	}

	toCall := money.Max(0, h.CurrentBet-actor.StreetCommit)

	switch action.Kind {
	case models.ActionFold:
		actor.Folded = true
		h.DropPending(playerName)

	case models.ActionCheck:
		if toCall != 0 {
			return false, "Cannot check facing a bet."
		}
		h.DropPending(playerName)

	case models.ActionCall:
		if toCall <= 0 {
			return false, "Nothing to call."
		}
		actor.Commit(toCall)
		h.DropPending(playerName)

	case models.ActionBet:
		if toCall != 0 {
			return false, "Use raise while facing a bet."
		}
		betTo := action.Amount
		if betTo <= 0 {
			return false, "Bet must be positive."
		}
		if betTo > actor.Stack {
			return false, "Insufficient chips for this bet."
		}
		if betTo < h.BigBlind && betTo < actor.Stack {
			return false, "Bet is below minimum."
		}
		actor.Commit(betTo)
		h.CurrentBet = actor.StreetCommit
		h.MinRaise = money.Max(h.BigBlind, betTo)
		h.PendingToAct = eligibleToAct(h)
		h.DropPending(playerName)

	case models.ActionRaise:
		if toCall <= 0 {
			return false, "Nothing to raise."
		}
		raiseTo := action.Amount
		minTo := h.CurrentBet + h.MinRaise
		maxTo := actor.StreetCommit + actor.Stack
		if raiseTo > maxTo {
			return false, "Insufficient chips for this raise."
		}
		isAllIn := raiseTo == maxTo
		if raiseTo < minTo && !isAllIn {
			return false, "Raise is below minimum."
		}
		pay := raiseTo - actor.StreetCommit
		if pay <= 0 {
			return false, "Raise must increase commitment."
		}
		actor.Commit(pay)
		// A full raise reopens the action and resets the increment;
		// a short all-in raise does not.
		fullRaise := raiseTo - h.CurrentBet
		if fullRaise >= h.MinRaise {
			h.MinRaise = fullRaise
		}
		h.CurrentBet = raiseTo
		h.PendingToAct = eligibleToAct(h)
		h.DropPending(playerName)

	case models.ActionAllIn:
		if actor.Stack <= 0 {
			return false, "No chips remaining."
		}
		actor.Commit(actor.Stack)
		if actor.StreetCommit > h.CurrentBet {
			fullRaise := actor.StreetCommit - h.CurrentBet
			h.CurrentBet = actor.StreetCommit
			if fullRaise >= h.MinRaise {
				h.MinRaise = fullRaise
				h.PendingToAct = eligibleToAct(h)
			}
		}
		h.DropPending(playerName)

	default:
		return false, "Invalid action."
	}

	h.Pot = totalCommitted(h)
	h.ActionLog = append(h.ActionLog, models.ActionLogEntry{
		Player: playerName,
		Street: h.Street,
		Kind:   action.Kind,
		Amount: action.Amount,
	})

	if h.Street != models.StreetShowdown && h.Street != models.StreetFinished {
		if next := findNextActive(h.Players, actorIdx); next >= 0 {
			h.ActingIndex = next
		}
	}

	maybeAdvance(h)
	return true, "Action accepted."
}

// Forfeit folds playerName out of turn, used for disconnects and
// turn timeouts. It is a no-op once the player's hand is decided.
func Forfeit(h *models.Hand, playerName string) {
	if h == nil || h.Finished() || h.Street == models.StreetShowdown {
		return
	}
	p := h.PlayerByName(playerName)
	if p == nil || p.Folded {
		return
	}
	p.Folded = true
	h.DropPending(playerName)
	h.ActionLog = append(h.ActionLog, models.ActionLogEntry{
		Player: playerName,
		Street: h.Street,
		Kind:   models.ActionFold,
	})
	if h.ActingIndex >= 0 && h.Players[h.ActingIndex].Name == playerName {
		if next := findNextActive(h.Players, h.ActingIndex); next >= 0 {
			h.ActingIndex = next
		}
	}
	maybeAdvance(h)
}

func totalCommitted(h *models.Hand) money.Amount {
	var total money.Amount
	for _, p := range h.Players {
		total += p.CommittedTotal
	}
	return total
}

// maybeAdvance settles an uncontested pot, closes the street when
// nobody owes an action, or skips the acting marker past players
// whose street is already settled.
func maybeAdvance(h *models.Hand) {
	if h.Street == models.StreetShowdown || h.Street == models.StreetFinished {
		return
	}
	if collectUncontested(h) {
		return
	}
	if len(h.PendingToAct) == 0 {
		startNextStreet(h)
		return
	}
	if h.ActingIndex < 0 {
		return
	}
	current := h.Players[h.ActingIndex].Name
	if h.IsPending(current) {
		return
	}
	for range h.Players {
		next := findNextActive(h.Players, h.ActingIndex)
		if next < 0 {
			break
		}
		h.ActingIndex = next
		if h.IsPending(h.Players[next].Name) {
			return
		}
	}
}

// startNextStreet deals the next community cards with a burn before
// each deal. When every live player is all-in the remaining board is
// run out and the hand goes straight to showdown.
func startNextStreet(h *models.Hand) {
	alive := countPlayers(h.Players, isInHand)
	if alive <= 1 {
		collectUncontested(h)
		return
	}
	allAllIn := true
	for _, p := range h.Players {
		if isInHand(p) && !p.AllIn {
			allAllIn = false
			break
		}
	}
	if allAllIn {
		for len(h.Board) < 5 {
			_ = h.Deck.Burn()
			dealBoard(h, 1)
		}
		h.Street = models.StreetShowdown
		runShowdown(h)
		return
	}

	for _, p := range h.Players {
		p.StreetCommit = 0
	}
	h.CurrentBet = 0
	h.MinRaise = h.TableMinRaise

	switch h.Street {
	case models.StreetPreflop:
		_ = h.Deck.Burn()
		dealBoard(h, 3)
		h.Street = models.StreetFlop
	case models.StreetFlop:
		_ = h.Deck.Burn()
		dealBoard(h, 1)
		h.Street = models.StreetTurn
	case models.StreetTurn:
		_ = h.Deck.Burn()
		dealBoard(h, 1)
		h.Street = models.StreetRiver
	case models.StreetRiver:
		h.Street = models.StreetShowdown
		runShowdown(h)
		return
	}

	h.PendingToAct = eligibleToAct(h)
	h.ActingIndex = findNextActive(h.Players, h.DealerIndex)
}

func dealBoard(h *models.Hand, count int) {
	for i := 0; i < count; i++ {
		card, err := h.Deck.Deal()
		if err != nil {
			return
		}
		h.Board = append(h.Board, card)
	}
}
