package models

import (
	"encoding/json"

	"github.com/iek-bit/Gambly/money"
)

// PokerSettings are platform-wide poker defaults.
type PokerSettings struct {
	ActivityTTLSeconds int `json:"activityTTLSeconds"`
}

type PokerState struct {
	Settings PokerSettings `json:"settings"`
	Tables   []*PokerTable `json:"tables"`
	NextID   int           `json:"nextId"`
}

type BlackjackState struct {
	Settings BlackjackSettings `json:"settings"`
	Tables   []*BlackjackTable `json:"tables"`
	NextID   int               `json:"nextId"`
}

// SessionInfo tracks a player's activity heartbeat, used to detect
// disconnects.
type SessionInfo struct {
	LastSeen int64 `json:"lastSeen"`
}

// State is the entire persisted world: every account, session and
// table. It is loaded fresh under the store lock, mutated in memory
// and written back as a whole.
type State struct {
	Accounts  map[string]*Account     `json:"accounts"`
	Sessions  map[string]*SessionInfo `json:"activeSessions"`
	Poker     *PokerState             `json:"poker"`
	Blackjack *BlackjackState         `json:"blackjack"`
	Revision  int64                   `json:"revision"`
}

func DefaultState() *State {
	s := &State{}
	s.Normalize()
	return s
}

// Normalize fills missing sections and clamps settings, so a state
// decoded from an older or hand-edited file is always usable.
func (s *State) Normalize() {
	if s.Accounts == nil {
		s.Accounts = make(map[string]*Account)
	}
	if s.Sessions == nil {
		s.Sessions = make(map[string]*SessionInfo)
	}
	if s.Poker == nil {
		s.Poker = &PokerState{}
	}
	if s.Poker.Tables == nil {
		s.Poker.Tables = []*PokerTable{}
	}
	if s.Poker.Settings.ActivityTTLSeconds <= 0 {
		s.Poker.Settings.ActivityTTLSeconds = 30
	}
	if s.Poker.NextID <= 0 {
		s.Poker.NextID = 1
	}
	if s.Blackjack == nil {
		s.Blackjack = &BlackjackState{}
	}
	if s.Blackjack.Tables == nil {
		s.Blackjack.Tables = []*BlackjackTable{}
	}
	if s.Blackjack.NextID <= 0 {
		s.Blackjack.NextID = 1
	}
	bj := &s.Blackjack.Settings
	if bj.DefaultMaxPlayers <= 0 {
		bj.DefaultMaxPlayers = 5
	}
	if bj.DefaultMaxPlayers > 8 {
		bj.DefaultMaxPlayers = 8
	}
	if bj.DefaultMinBet <= 0 {
		bj.DefaultMinBet = money.FromDecimal(10)
	}
	if bj.TurnTimeoutSeconds == 0 {
		bj.TurnTimeoutSeconds = 30
	}
	if bj.TurnTimeoutSeconds < 5 {
		bj.TurnTimeoutSeconds = 5
	}
	if bj.TimeoutPenaltyPercent == 0 {
		bj.TimeoutPenaltyPercent = 25
	}
	if bj.TimeoutPenaltyPercent < 0 {
		bj.TimeoutPenaltyPercent = 0
	}
	if bj.TimeoutPenaltyPercent > 100 {
		bj.TimeoutPenaltyPercent = 100
	}
	for _, acct := range s.Accounts {
		if acct.Stats == nil {
			acct.Stats = &AccountStats{}
		}
		if acct.Stats.GameBreakdown == nil {
			acct.Stats.GameBreakdown = make(map[string]*StatsBucket)
		}
	}
}

// MarkActive records a heartbeat for name at the given unix time.
func (s *State) MarkActive(name string, now int64) {
	info, ok := s.Sessions[name]
	if !ok {
		info = &SessionInfo{}
		s.Sessions[name] = info
	}
	info.LastSeen = now
}

// ActiveWithin reports whether name heartbeat within ttl seconds of
// now.
func (s *State) ActiveWithin(name string, now, ttl int64) bool {
	info, ok := s.Sessions[name]
	if !ok {
		return false
	}
	return now-info.LastSeen <= ttl
}

// Clone deep-copies the state through its JSON form, which is also
// the persistence format.
func (s *State) Clone() *State {
	data, err := json.Marshal(s)
	if err != nil {
		return DefaultState()
	}
	out := &State{}
	if err := json.Unmarshal(data, out); err != nil {
		return DefaultState()
	}
	out.Normalize()
	return out
}
