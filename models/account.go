package models

import "github.com/iek-bit/Gambly/money"

const (
	GamePoker     = "poker"
	GameBlackjack = "blackjack"
)

// StatsBucket accumulates lifetime results, either overall or for
// one game type.
type StatsBucket struct {
	RoundsPlayed  int          `json:"roundsPlayed"`
	RoundsWon     int          `json:"roundsWon"`
	TotalBuyIn    money.Amount `json:"totalGameBuyIn"`
	TotalPayout   money.Amount `json:"totalGamePayout"`
	TotalNet      money.Amount `json:"totalGameNet"`
	WinPercentage float64      `json:"currentWinPercentage"`
}

func (b *StatsBucket) record(buyIn, payout money.Amount, won bool) {
	b.RoundsPlayed++
	if won {
		b.RoundsWon++
	}
	b.TotalBuyIn += buyIn
	b.TotalPayout += payout
	b.TotalNet += payout - buyIn
	b.WinPercentage = float64(b.RoundsWon) / float64(b.RoundsPlayed) * 100
}

// AccountStats keeps an overall bucket plus a per-game breakdown.
type AccountStats struct {
	StatsBucket
	GameBreakdown map[string]*StatsBucket `json:"gameBreakdown"`
}

type AccountSettings struct {
	AllowNegativeBalance bool `json:"allowNegativeBalance"`
}

type Account struct {
	Balance  money.Amount    `json:"balance"`
	IsAdmin  bool            `json:"isAdmin,omitempty"`
	Stats    *AccountStats   `json:"stats"`
	Settings AccountSettings `json:"settings"`
}

func NewAccount(balance money.Amount) *Account {
	return &Account{
		Balance: balance,
		Stats:   &AccountStats{GameBreakdown: make(map[string]*StatsBucket)},
	}
}

// CanAfford reports whether a charge of amount is allowed under the
// account's balance rules.
func (a *Account) CanAfford(amount money.Amount) bool {
	if a.Settings.AllowNegativeBalance {
		return true
	}
	return a.Balance >= amount
}

// Debit removes amount from the balance, refusing overdrafts unless
// the account permits them.
func (a *Account) Debit(amount money.Amount) bool {
	if !a.CanAfford(amount) {
		return false
	}
	a.Balance -= amount
	return true
}

func (a *Account) Credit(amount money.Amount) {
	a.Balance += amount
}

// RecordResult folds one finished round into the overall and
// per-game statistics.
func (a *Account) RecordResult(game string, buyIn, payout money.Amount, won bool) {
	if a.Stats == nil {
		a.Stats = &AccountStats{}
	}
	if a.Stats.GameBreakdown == nil {
		a.Stats.GameBreakdown = make(map[string]*StatsBucket)
	}
	a.Stats.record(buyIn, payout, won)
	bucket, ok := a.Stats.GameBreakdown[game]
	if !ok {
		bucket = &StatsBucket{}
		a.Stats.GameBreakdown[game] = bucket
	}
	bucket.record(buyIn, payout, won)
}
