package models

import "github.com/iek-bit/Gambly/money"

// PokerTableConfig is set at table creation and may be edited by the
// host while no hand is live.
type PokerTableConfig struct {
	MaxSeats           int          `json:"maxSeats"`
	MinBuyIn           money.Amount `json:"minBuyIn"`
	MaxBuyIn           money.Amount `json:"maxBuyIn"`
	SmallBlind         money.Amount `json:"smallBlind"`
	BigBlind           money.Amount `json:"bigBlind"`
	MinRaise           money.Amount `json:"minRaise"`
	TurnTimeoutSeconds int          `json:"turnTimeoutSeconds"`
	IsPrivate          bool         `json:"isPrivate"`
	Password           string       `json:"password,omitempty"`
}

// Seat is one occupied chair at a poker table. StartStack snapshots
// the stack when a hand begins so the hand delta can be reconciled
// afterwards.
type Seat struct {
	Name       string       `json:"name"`
	IsBot      bool         `json:"isBot"`
	Stack      money.Amount `json:"stack"`
	Ready      bool         `json:"ready"`
	StartStack money.Amount `json:"startStack"`
	LastNet    money.Amount `json:"lastNet"`
	Leaving    bool         `json:"leaving,omitempty"`
}

// PendingJoin is a player queued while a hand is live; their buy-in
// was already debited and becomes their stack once seated.
type PendingJoin struct {
	Name  string       `json:"name"`
	Stack money.Amount `json:"stack"`
}

type PokerTable struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	Host        string           `json:"host"`
	Config      PokerTableConfig `json:"config"`
	Seats       []*Seat          `json:"seats"`
	Pending     []PendingJoin    `json:"pending"`
	DealerIndex int              `json:"dealerIndex"`
	HandCount   int              `json:"handCount"`
	Hand        *Hand            `json:"hand,omitempty"`
	History     []string         `json:"history"`
	TurnStarted int64            `json:"turnStarted"`
	LastUpdated int64            `json:"lastUpdated"`
}

func (t *PokerTable) SeatByName(name string) *Seat {
	for _, s := range t.Seats {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (t *PokerTable) SeatIndex(name string) int {
	for i, s := range t.Seats {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Occupancy counts seats plus queued joins against MaxSeats.
func (t *PokerTable) Occupancy() int {
	return len(t.Seats) + len(t.Pending)
}

const historyLimit = 80

// AppendHistory keeps the table log bounded to the most recent
// entries.
func (t *PokerTable) AppendHistory(entry string) {
	t.History = append(t.History, entry)
	if len(t.History) > historyLimit {
		t.History = t.History[len(t.History)-historyLimit:]
	}
}
