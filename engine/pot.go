package engine

import (
	"sort"

	"github.com/iek-bit/Gambly/models"
	"github.com/iek-bit/Gambly/money"
)

// potLayer is one slice of the pot built from a contribution level.
// Participants funded it; eligible are the unfolded participants who
// can win it.
type potLayer struct {
	amount   money.Amount
	eligible []string
}

// buildPotLayers splits total contributions into main and side pots.
// Levels are the distinct positive committed totals in ascending
// order; each layer holds the span between consecutive levels times
// the number of players who reached it.
func buildPotLayers(h *models.Hand) []potLayer {
	levelSet := make(map[money.Amount]bool)
	for _, p := range h.Players {
		if p.CommittedTotal > 0 {
			levelSet[p.CommittedTotal] = true
		}
	}
	levels := make([]money.Amount, 0, len(levelSet))
	for level := range levelSet {
		levels = append(levels, level)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	layers := make([]potLayer, 0, len(levels))
	var prev money.Amount
	for _, level := range levels {
		var participants int
		var eligible []string
		for _, p := range h.Players {
			if p.CommittedTotal >= level {
				participants++
				if !p.Folded {
					eligible = append(eligible, p.Name)
				}
			}
		}
		amount := (level - prev) * money.Amount(participants)
		if amount > 0 {
			layers = append(layers, potLayer{amount: amount, eligible: eligible})
		}
		prev = level
	}
	return layers
}

// distributeCents splits amount evenly among winners; any remainder
// cents go one each to winners in seat order starting left of the
// dealer.
func distributeCents(amount money.Amount, winners []string, h *models.Hand) map[string]money.Amount {
	if len(winners) == 0 {
		return map[string]money.Amount{}
	}
	base := amount / money.Amount(len(winners))
	rem := int(amount % money.Amount(len(winners)))
	payouts := make(map[string]money.Amount, len(winners))
	winnerSet := make(map[string]bool, len(winners))
	for _, w := range winners {
		payouts[w] = base
		winnerSet[w] = true
	}
	if rem > 0 {
		start := (h.DealerIndex + 1) % len(h.Players)
		for offset := 0; offset < len(h.Players) && rem > 0; offset++ {
			name := h.Players[(start+offset)%len(h.Players)].Name
			if winnerSet[name] {
				payouts[name]++
				rem--
			}
		}
	}
	return payouts
}

// runShowdown resolves every pot layer to its best seven-card hand
// and pays the winners.
func runShowdown(h *models.Hand) {
	layers := buildPotLayers(h)
	payouts := make(map[string]money.Amount)
	detail := make([]models.PotBreakdown, 0, len(layers))

	for _, layer := range layers {
		if len(layer.eligible) == 0 {
			continue
		}
		var best Score
		scores := make(map[string]Score, len(layer.eligible))
		for _, name := range layer.eligible {
			p := h.PlayerByName(name)
			cards := append(append([]models.Card{}, p.Hole...), h.Board...)
			score := EvaluateBestSeven(cards)
			scores[name] = score
			if best == nil || score.Compare(best) > 0 {
				best = score
			}
		}
		winners := make([]string, 0, len(layer.eligible))
		for _, name := range layer.eligible {
			if scores[name].Equal(best) {
				winners = append(winners, name)
			}
		}
		for name, gain := range distributeCents(layer.amount, winners, h) {
			payouts[name] += gain
		}
		detail = append(detail, models.PotBreakdown{Amount: layer.amount, Winners: winners})
	}

	for _, p := range h.Players {
		p.Stack += payouts[p.Name]
	}

	h.Pot = 0
	h.Street = models.StreetFinished
	h.Result = &models.HandResult{
		Type:     models.ResultShowdown,
		Winnings: payouts,
		Pots:     detail,
	}
}

// collectUncontested awards the whole pot when only one player is
// left in the hand.
func collectUncontested(h *models.Hand) bool {
	var winner *models.HandPlayer
	alive := 0
	for _, p := range h.Players {
		if isInHand(p) {
			alive++
			winner = p
		}
	}
	if alive != 1 {
		return false
	}
	pot := totalCommitted(h)
	winner.Stack += pot
	h.Pot = 0
	h.Street = models.StreetFinished
	h.Result = &models.HandResult{
		Type:     models.ResultUncontested,
		Winnings: map[string]money.Amount{winner.Name: pot},
		Pots:     []models.PotBreakdown{{Amount: pot, Winners: []string{winner.Name}}},
	}
	return true
}
