package models

import "github.com/iek-bit/Gambly/money"

type BlackjackPhase string

const (
	PhaseWaitingForPlayers BlackjackPhase = "waiting_for_players"
	PhaseWaitingForBets    BlackjackPhase = "waiting_for_bets"
	PhasePlayerTurns       BlackjackPhase = "player_turns"
	PhaseFinished          BlackjackPhase = "finished"
)

type BlackjackStatus string

const (
	BJWaiting    BlackjackStatus = "waiting"
	BJBetReady   BlackjackStatus = "bet_ready"
	BJReady      BlackjackStatus = "ready"
	BJPlaying    BlackjackStatus = "playing"
	BJStood      BlackjackStatus = "stood"
	BJBusted     BlackjackStatus = "busted"
	BJNatural    BlackjackStatus = "blackjack"
	BJSittingOut BlackjackStatus = "sitting_out"
	BJFinished   BlackjackStatus = "finished"
	BJTimedOut   BlackjackStatus = "timed_out"
)

const (
	BJResultWin       = "win"
	BJResultLoss      = "loss"
	BJResultPush      = "push"
	BJResultBlackjack = "blackjack"
)

// BlackjackPlayer is the per-round state of one seated player.
type BlackjackPlayer struct {
	Bet     money.Amount    `json:"bet"`
	Ready   bool            `json:"ready"`
	Cards   []Card          `json:"cards"`
	Status  BlackjackStatus `json:"status"`
	Result  string          `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
	Payout  money.Amount    `json:"payout"`
	Natural bool            `json:"natural,omitempty"`
	Penalty money.Amount    `json:"penalty,omitempty"`
}

// BlackjackSettings are platform-wide defaults applied when tables
// are created or reset.
type BlackjackSettings struct {
	DefaultMaxPlayers     int           `json:"defaultMaxPlayers"`
	DefaultMinBet         money.Amount  `json:"defaultMinBet"`
	DefaultMaxBet         *money.Amount `json:"defaultMaxBet,omitempty"`
	TurnTimeoutSeconds    int           `json:"turnTimeoutSeconds"`
	TimeoutPenaltyPercent float64       `json:"timeoutPenaltyPercent"`
}

type BlackjackTable struct {
	ID          int                         `json:"id"`
	Name        string                      `json:"name"`
	Host        string                      `json:"host"`
	Players     []string                    `json:"players"`
	Pending     []string                    `json:"pending"`
	MaxPlayers  int                         `json:"maxPlayers"`
	MinBet      money.Amount                `json:"minBet"`
	MaxBet      *money.Amount               `json:"maxBet,omitempty"`
	IsPrivate   bool                        `json:"isPrivate"`
	Password    string                      `json:"password,omitempty"`
	Phase       BlackjackPhase              `json:"phase"`
	Round       int                         `json:"round"`
	InProgress  bool                        `json:"inProgress"`
	DealerCards []Card                      `json:"dealerCards"`
	Deck        []Card                      `json:"deck"`
	TurnOrder   []string                    `json:"turnOrder"`
	TurnIndex   int                         `json:"turnIndex"`
	TurnStarted int64                       `json:"turnStarted"`
	States      map[string]*BlackjackPlayer `json:"states"`
	History     []string                    `json:"history"`
	LastUpdated int64                       `json:"lastUpdated"`
}

func (t *BlackjackTable) HasPlayer(name string) bool {
	for _, p := range t.Players {
		if p == name {
			return true
		}
	}
	return false
}

func (t *BlackjackTable) HasPending(name string) bool {
	for _, p := range t.Pending {
		if p == name {
			return true
		}
	}
	return false
}

// Occupancy counts seated players plus queued joins.
func (t *BlackjackTable) Occupancy() int {
	return len(t.Players) + len(t.Pending)
}

// State returns the per-round record for name, creating a waiting
// one when missing.
func (t *BlackjackTable) State(name string) *BlackjackPlayer {
	if t.States == nil {
		t.States = make(map[string]*BlackjackPlayer)
	}
	st, ok := t.States[name]
	if !ok {
		st = &BlackjackPlayer{Status: BJWaiting, Cards: []Card{}}
		t.States[name] = st
	}
	return st
}

func (t *BlackjackTable) AppendHistory(entry string) {
	t.History = append(t.History, entry)
	if len(t.History) > historyLimit {
		t.History = t.History[len(t.History)-historyLimit:]
	}
}
