package models

import "github.com/iek-bit/Gambly/money"

type Street string

const (
	StreetPreflop  Street = "preflop"
	StreetFlop     Street = "flop"
	StreetTurn     Street = "turn"
	StreetRiver    Street = "river"
	StreetShowdown Street = "showdown"
	StreetFinished Street = "finished"
)

// ActionLogEntry records one applied action for history and for bot
// aggression reads.
type ActionLogEntry struct {
	Player string       `json:"player"`
	Street Street       `json:"street"`
	Kind   ActionKind   `json:"kind"`
	Amount money.Amount `json:"amount"`
}

// PotBreakdown is one pot layer after resolution: its size and who
// shared it.
type PotBreakdown struct {
	Amount  money.Amount `json:"amount"`
	Winners []string     `json:"winners"`
}

const (
	ResultUncontested = "uncontested"
	ResultShowdown    = "showdown"
)

// HandResult is the terminal outcome of a hand. Winnings maps player
// name to the total paid out across all pot layers.
type HandResult struct {
	Type     string                  `json:"type"`
	Winnings map[string]money.Amount `json:"winnings"`
	Pots     []PotBreakdown          `json:"pots"`
}

// Hand is the full state of one hand of play. Indexes refer to the
// Players slice; ActingIndex is -1 once nobody is due to act.
type Hand struct {
	Players       []*HandPlayer    `json:"players"`
	SmallBlind    money.Amount     `json:"smallBlind"`
	BigBlind      money.Amount     `json:"bigBlind"`
	TableMinRaise money.Amount     `json:"tableMinRaise"`
	DealerIndex   int              `json:"dealerIndex"`
	Deck          *Deck            `json:"deck"`
	Board         []Card           `json:"board"`
	Street        Street           `json:"street"`
	CurrentBet    money.Amount     `json:"currentBet"`
	MinRaise      money.Amount     `json:"minRaise"`
	ActingIndex   int              `json:"actingIndex"`
	PendingToAct  []string         `json:"pendingToAct"`
	Pot           money.Amount     `json:"pot"`
	ActionLog     []ActionLogEntry `json:"actionLog"`
	Result        *HandResult      `json:"result,omitempty"`
}

func (h *Hand) Finished() bool {
	return h.Street == StreetFinished
}

// PlayerByName returns the hand participant with the given name, or
// nil when absent.
func (h *Hand) PlayerByName(name string) *HandPlayer {
	for _, p := range h.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ActingPlayer returns the player due to act, or nil when the hand is
// between streets or over.
func (h *Hand) ActingPlayer() *HandPlayer {
	if h.ActingIndex < 0 || h.ActingIndex >= len(h.Players) {
		return nil
	}
	return h.Players[h.ActingIndex]
}

// IsPending reports whether name still owes an action this street.
func (h *Hand) IsPending(name string) bool {
	for _, n := range h.PendingToAct {
		if n == name {
			return true
		}
	}
	return false
}

// DropPending removes name from the set of players owing an action.
func (h *Hand) DropPending(name string) {
	out := h.PendingToAct[:0]
	for _, n := range h.PendingToAct {
		if n != name {
			out = append(out, n)
		}
	}
	h.PendingToAct = out
}
