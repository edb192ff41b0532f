package engine

import "github.com/iek-bit/Gambly/models"

// findNext walks clockwise from start and returns the first index
// whose player passes the filter, or -1 when nobody does.
func findNext(players []*models.HandPlayer, start int, filter PlayerFilter) int {
	count := len(players)
	for offset := 1; offset <= count; offset++ {
		idx := (start + offset) % count
		if filter(players[idx]) {
			return idx
		}
	}
	return -1
}

func findNextActive(players []*models.HandPlayer, start int) int {
	return findNext(players, start, canAct)
}

func findNextSeated(players []*models.HandPlayer, start int) int {
	return findNext(players, start, hasChips)
}

func firstWithChips(players []*models.HandPlayer) int {
	for i, p := range players {
		if hasChips(p) {
			return i
		}
	}
	return -1
}
