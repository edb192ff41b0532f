package models

import "github.com/iek-bit/Gambly/money"

type ActionKind string

const (
	ActionFold  ActionKind = "fold"
	ActionCheck ActionKind = "check"
	ActionCall  ActionKind = "call"
	ActionBet   ActionKind = "bet"
	ActionRaise ActionKind = "raise"
	ActionAllIn ActionKind = "all_in"
)

// Action is a player's betting decision. Amount is the total street
// commitment being targeted for bet and raise; it is ignored for the
// other kinds.
type Action struct {
	Kind   ActionKind   `json:"kind"`
	Amount money.Amount `json:"amount,omitempty"`
}

// HandPlayer is one participant of a single hand. Stack and the
// commitment counters are minor units.
type HandPlayer struct {
	Name           string       `json:"name"`
	Stack          money.Amount `json:"stack"`
	Hole           []Card       `json:"hole"`
	Folded         bool         `json:"folded"`
	AllIn          bool         `json:"allIn"`
	StreetCommit   money.Amount `json:"streetCommit"`
	CommittedTotal money.Amount `json:"committedTotal"`
}

func NewHandPlayer(name string, stack money.Amount) *HandPlayer {
	return &HandPlayer{
		Name:  name,
		Stack: stack,
		Hole:  make([]Card, 0, 2),
	}
}

// Commit moves up to amount from the stack into the current street's
// bet, flagging the player all-in when the stack is exhausted.
func (p *HandPlayer) Commit(amount money.Amount) money.Amount {
	if amount >= p.Stack {
		amount = p.Stack
		p.AllIn = true
	}
	p.Stack -= amount
	p.StreetCommit += amount
	p.CommittedTotal += amount
	return amount
}

// CanAct reports whether the player can still make a betting
// decision in this hand.
func (p *HandPlayer) CanAct() bool {
	return !p.Folded && !p.AllIn && p.Stack > 0
}

// InHand reports whether the player still contests the pot.
func (p *HandPlayer) InHand() bool {
	return !p.Folded
}
