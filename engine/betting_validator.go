package engine

import (
	"github.com/iek-bit/Gambly/models"
	"github.com/iek-bit/Gambly/money"
)

// LegalActions describes what the acting player may do right now.
// The amount fields are only meaningful for the kinds they bound:
// MinBet/MaxBet when betting is open, MinRaiseTo/MaxRaiseTo when
// facing a bet.
type LegalActions struct {
	Kinds      []models.ActionKind `json:"actions"`
	ToCall     money.Amount        `json:"toCall"`
	MinBet     money.Amount        `json:"minBet,omitempty"`
	MaxBet     money.Amount        `json:"maxBet,omitempty"`
	MinRaiseTo money.Amount        `json:"minRaiseTo,omitempty"`
	MaxRaiseTo money.Amount        `json:"maxRaiseTo,omitempty"`
}

func (l LegalActions) Has(kind models.ActionKind) bool {
	for _, k := range l.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Legal returns the options open to playerName, which are empty
// whenever it is not their turn or the hand is over.
func Legal(h *models.Hand, playerName string) LegalActions {
	none := LegalActions{Kinds: []models.ActionKind{}}
	if h == nil || h.Street == models.StreetShowdown || h.Street == models.StreetFinished {
		return none
	}
	actor := h.ActingPlayer()
	if actor == nil || actor.Name != playerName {
		return none
	}
	player := h.PlayerByName(playerName)
	if player == nil || player.Folded || player.AllIn {
		return none
	}

	toCall := money.Max(0, h.CurrentBet-player.StreetCommit)
	out := LegalActions{Kinds: []models.ActionKind{models.ActionFold}, ToCall: toCall}

	if toCall <= 0 {
		out.Kinds = append(out.Kinds, models.ActionCheck)
		if player.Stack > 0 {
			out.Kinds = append(out.Kinds, models.ActionBet, models.ActionAllIn)
			out.MinBet = h.BigBlind
			out.MaxBet = player.Stack
		}
		return out
	}

	if player.Stack > 0 {
		out.Kinds = append(out.Kinds, models.ActionCall)
		if player.Stack > toCall {
			out.Kinds = append(out.Kinds, models.ActionRaise, models.ActionAllIn)
			out.MinRaiseTo = h.CurrentBet + h.MinRaise
			out.MaxRaiseTo = player.StreetCommit + player.Stack
		}
	}
	return out
}
