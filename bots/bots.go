// Package bots implements the rule-based table bots. Choose is a
// pure function of the hand state, so replaying the same state
// always yields the same decision.
package bots

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"

	"github.com/iek-bit/Gambly/engine"
	"github.com/iek-bit/Gambly/models"
	"github.com/iek-bit/Gambly/money"
)

// Choose picks an action for name given what the engine allows. The
// amounts on bet and raise actions are already clamped to the legal
// bounds.
func Choose(h *models.Hand, name string, legal engine.LegalActions) models.Action {
	if len(legal.Kinds) == 0 {
		return models.Action{Kind: models.ActionCheck}
	}
	player := h.PlayerByName(name)
	if player == nil {
		return models.Action{Kind: models.ActionFold}
	}

	strength, drawBonus := strength0to100(h, player)
	looseness, aggression := Profile(name)

	toCall := legal.ToCall.Decimal()
	pot := h.Pot.Decimal()
	stack := player.Stack.Decimal()
	preflop := len(h.Board) == 0
	commitmentRatio := toCall / math.Max(0.01, stack)
	potOdds := toCall / math.Max(0.01, pot+toCall)
	recentAggression := recentAggressionCount(h.ActionLog)

	if legal.Has(models.ActionCheck) && legal.ToCall <= 0 {
		if legal.Has(models.ActionAllIn) && stack > 0 && strength >= 95-(aggression*20) {
			return models.Action{Kind: models.ActionAllIn}
		}
		if legal.Has(models.ActionBet) {
			bluffFactor := math.Max(0, math.Min(1, 0.12+aggression+preflopBonus(preflop)))
			valueThreshold := 56 - (aggression * 10) - (drawBonus * 0.5)
			shouldBet := strength >= valueThreshold ||
				(drawBonus >= 5 && bluffRoll(name, len(h.ActionLog), len(h.Board)) < bluffFactor)
			if shouldBet {
				var potMult float64
				switch {
				case strength >= 86:
					potMult = 0.95
				case strength >= 72:
					potMult = 0.72
				case drawBonus >= 5:
					potMult = 0.48
				default:
					potMult = 0.55
				}
				size := math.Max(pot*potMult, stack*0.14)
				// MaxBet wins the clamp so a stack below the minimum
				// still produces a legal whole-stack bet.
				amount := money.Min(legal.MaxBet, money.Max(legal.MinBet, money.FromDecimal(size)))
				return models.Action{Kind: models.ActionBet, Amount: amount}
			}
		}
		return models.Action{Kind: models.ActionCheck}
	}

	if legal.Has(models.ActionAllIn) && stack > 0 {
		// Jam short stacks wider; otherwise reserve the shove for
		// very strong holdings.
		if commitmentRatio >= 0.45 && strength >= 63-(looseness*20) {
			return models.Action{Kind: models.ActionAllIn}
		}
		if strength >= 97-(aggression*25) {
			return models.Action{Kind: models.ActionAllIn}
		}
	}

	if legal.Has(models.ActionRaise) {
		raiseThreshold := 69 + (commitmentRatio * 10) + (float64(recentAggression) * 2) -
			(aggression * 14) - (looseness * 8)
		if preflop {
			raiseThreshold += 2.5
		}
		if strength >= raiseThreshold && legal.MaxRaiseTo >= legal.MinRaiseTo {
			var potMult float64
			switch {
			case strength >= 88:
				potMult = 1.08
			case strength >= 78:
				potMult = 0.86
			default:
				potMult = 0.68
			}
			target := math.Max(toCall*2.25, pot*potMult)
			amount := money.Clamp(money.FromDecimal(target), legal.MinRaiseTo, legal.MaxRaiseTo)
			return models.Action{Kind: models.ActionRaise, Amount: amount}
		}
	}

	if legal.Has(models.ActionCall) {
		base := 44.0
		if preflop {
			base = 50.0
		}
		callThreshold := base +
			(commitmentRatio * 24) +
			(potOdds * 18) +
			(float64(recentAggression) * 1.5) -
			(drawBonus * 0.75) -
			(looseness * 16) -
			(aggression * 8)
		if strength >= callThreshold {
			return models.Action{Kind: models.ActionCall}
		}
	}

	if legal.Has(models.ActionCheck) {
		return models.Action{Kind: models.ActionCheck}
	}
	if legal.Has(models.ActionFold) {
		return models.Action{Kind: models.ActionFold}
	}
	return models.Action{Kind: legal.Kinds[0]}
}

// Profile derives a stable playing style from the bot's name: both
// values land in -0.10..+0.10. The FNV-1a hash keeps the mapping
// uniform across names of any length.
func Profile(name string) (looseness, aggression float64) {
	hash := fnv.New32a()
	hash.Write([]byte(name))
	seed := hash.Sum32()
	looseness = float64(int(seed%21)-10) / 100
	aggression = float64(int((seed/7)%21)-10) / 100
	return looseness, aggression
}

// bluffRoll replaces a random roll with a hash of the visible hand
// state, keeping the policy deterministic for a given state.
func bluffRoll(name string, logLen, boardLen int) float64 {
	hash := fnv.New64a()
	fmt.Fprintf(hash, "%s|%d|%d", name, logLen, boardLen)
	return float64(hash.Sum64()%10000) / 10000
}

func preflopBonus(preflop bool) float64 {
	if preflop {
		return 0.06
	}
	return 0
}

func recentAggressionCount(log []models.ActionLogEntry) int {
	start := len(log) - 4
	if start < 0 {
		start = 0
	}
	count := 0
	for _, entry := range log[start:] {
		switch entry.Kind {
		case models.ActionBet, models.ActionRaise, models.ActionAllIn:
			count++
		}
	}
	return count
}

// strength0to100 scores the bot's holding. Preflop uses rank, pair,
// suitedness and gap heuristics; postflop starts from the made-hand
// category and adds kicker and draw bonuses.
func strength0to100(h *models.Hand, player *models.HandPlayer) (strength, drawBonus float64) {
	hole := player.Hole
	if len(hole) != 2 {
		return 0, 0
	}

	if len(h.Board) == 0 {
		hi, lo := hole[0].Value(), hole[1].Value()
		if lo > hi {
			hi, lo = lo, hi
		}
		suited := hole[0].Suit == hole[1].Suit
		gap := hi - lo
		score := float64(hi+lo) * 2
		if gap == 0 {
			score += 30 + float64(hi)*1.5
		}
		if suited {
			score += 4
		}
		switch {
		case gap == 1:
			score += 4
		case gap == 2:
			score += 2
		case gap >= 4:
			score -= 3
		}
		if hi >= 11 && lo >= 10 {
			score += 6
		}
		return math.Max(0, math.Min(100, score)), 0
	}

	cards := append(append([]models.Card{}, hole...), h.Board...)
	score := engine.EvaluateBestSeven(cards)
	category := score.Rank()
	base := categoryScale(category)

	kickerSum := 0
	for _, v := range score[1:] {
		kickerSum += v
	}
	kickerCount := len(score) - 1
	if kickerCount < 1 {
		kickerCount = 1
	}
	kickerBonus := math.Min(8, float64(kickerSum)/float64(kickerCount)/3)

	if category <= engine.OnePair {
		if hasFlushDraw(cards) {
			drawBonus += 7
		}
		if hasStraightDraw(cards) {
			drawBonus += 5
		}
	}
	return math.Max(0, math.Min(100, base+kickerBonus+drawBonus)), drawBonus
}

func categoryScale(category engine.HandRank) float64 {
	switch category {
	case engine.HighCard:
		return 22
	case engine.OnePair:
		return 40
	case engine.TwoPair:
		return 57
	case engine.ThreeOfAKind:
		return 70
	case engine.Straight:
		return 80
	case engine.Flush:
		return 86
	case engine.FullHouse:
		return 92
	case engine.FourOfAKind:
		return 97
	case engine.StraightFlush:
		return 99
	}
	return 20
}

func hasFlushDraw(cards []models.Card) bool {
	if len(cards) < 4 {
		return false
	}
	counts := make(map[models.Suit]int)
	for _, c := range cards {
		counts[c.Suit]++
		if counts[c.Suit] >= 4 {
			return true
		}
	}
	return false
}

// hasStraightDraw looks for any four distinct values inside a
// five-wide window, treating the ace as low too.
func hasStraightDraw(cards []models.Card) bool {
	if len(cards) < 4 {
		return false
	}
	seen := make(map[int]bool)
	values := make([]int, 0, len(cards)+1)
	for _, c := range cards {
		v := c.Value()
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	if seen[14] && !seen[1] {
		values = append(values, 1)
	}
	sort.Ints(values)
	for i := 0; i+3 < len(values); i++ {
		if values[i+3]-values[i] <= 4 {
			return true
		}
	}
	return false
}
