package engine

import "github.com/iek-bit/Gambly/models"

type PlayerFilter func(*models.HandPlayer) bool

func canAct(p *models.HandPlayer) bool {
	return p != nil && !p.Folded && !p.AllIn
}

func isInHand(p *models.HandPlayer) bool {
	return p != nil && !p.Folded
}

func hasChips(p *models.HandPlayer) bool {
	return p != nil && p.Stack > 0
}

func countPlayers(players []*models.HandPlayer, filter PlayerFilter) int {
	count := 0
	for _, p := range players {
		if filter(p) {
			count++
		}
	}
	return count
}

// eligibleToAct lists the players who can still make a betting
// decision, in seat order.
func eligibleToAct(h *models.Hand) []string {
	names := make([]string, 0, len(h.Players))
	for _, p := range h.Players {
		if canAct(p) {
			names = append(names, p.Name)
		}
	}
	return names
}
