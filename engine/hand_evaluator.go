package engine

import (
	"sort"

	"github.com/iek-bit/Gambly/models"
)

type HandRank int

const (
	HighCard HandRank = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (hr HandRank) String() string {
	names := []string{"High Card", "One Pair", "Two Pair", "Three of a Kind", "Straight", "Flush", "Full House", "Four of a Kind", "Straight Flush"}
	return names[hr]
}

// Score is a hand strength that compares lexicographically: element
// zero is the HandRank, the rest are tie-break values high to low.
// Two scores are equal exactly when the hands tie.
type Score []int

func (s Score) Rank() HandRank {
	if len(s) == 0 {
		return HighCard
	}
	return HandRank(s[0])
}

// Compare returns -1, 0 or 1 ordering s against other.
func (s Score) Compare(other Score) int {
	n := len(s)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if s[i] != other[i] {
			if s[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	if len(s) == len(other) {
		return 0
	}
	if len(s) < len(other) {
		return -1
	}
	return 1
}

func (s Score) Equal(other Score) bool {
	return s.Compare(other) == 0
}

// EvaluateFive scores exactly five cards.
func EvaluateFive(cards []models.Card) Score {
	values := make([]int, 0, 5)
	for _, c := range cards {
		values = append(values, c.Value())
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	flush := true
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			flush = false
			break
		}
	}
	straight, straightHigh := findStraightHigh(values)
	groups := rankGroups(values)

	switch {
	case straight && flush:
		return Score{int(StraightFlush), straightHigh}
	case groups[0].count == 4:
		kicker := highestExcluding(values, groups[0].value)
		return Score{int(FourOfAKind), groups[0].value, kicker}
	case groups[0].count == 3 && groups[1].count == 2:
		return Score{int(FullHouse), groups[0].value, groups[1].value}
	case flush:
		return append(Score{int(Flush)}, values...)
	case straight:
		return Score{int(Straight), straightHigh}
	case groups[0].count == 3:
		s := Score{int(ThreeOfAKind), groups[0].value}
		for _, v := range values {
			if v != groups[0].value {
				s = append(s, v)
			}
		}
		return s
	case groups[0].count == 2 && groups[1].count == 2:
		high, low := groups[0].value, groups[1].value
		if low > high {
			high, low = low, high
		}
		kicker := 0
		for _, v := range values {
			if v != high && v != low && v > kicker {
				kicker = v
			}
		}
		return Score{int(TwoPair), high, low, kicker}
	case groups[0].count == 2:
		s := Score{int(OnePair), groups[0].value}
		for _, v := range values {
			if v != groups[0].value {
				s = append(s, v)
			}
		}
		return s
	default:
		return append(Score{int(HighCard)}, values...)
	}
}

// EvaluateBestSeven returns the best five-card score over every
// five-card subset of the given cards.
func EvaluateBestSeven(cards []models.Card) Score {
	n := len(cards)
	if n < 5 {
		return nil
	}
	var best Score
	pick := make([]models.Card, 5)
	var recur func(start, depth int)
	recur = func(start, depth int) {
		if depth == 5 {
			score := EvaluateFive(pick)
			if best == nil || score.Compare(best) > 0 {
				best = score
			}
			return
		}
		for i := start; i <= n-(5-depth); i++ {
			pick[depth] = cards[i]
			recur(i+1, depth+1)
		}
	}
	recur(0, 0)
	return best
}

type rankGroup struct {
	count int
	value int
}

// rankGroups orders value groups by count then value, both
// descending, so groups[0] is always the dominant group.
func rankGroups(values []int) []rankGroup {
	counts := make(map[int]int)
	for _, v := range values {
		counts[v]++
	}
	groups := make([]rankGroup, 0, len(counts))
	for v, c := range counts {
		groups = append(groups, rankGroup{count: c, value: v})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].value > groups[j].value
	})
	return groups
}

// findStraightHigh detects a five-card run, treating the ace as low
// for the wheel.
func findStraightHigh(values []int) (bool, int) {
	seen := make(map[int]bool)
	unique := make([]int, 0, len(values)+1)
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(unique)))
	if seen[14] {
		unique = append(unique, 1)
	}
	for i := 0; i+4 < len(unique); i++ {
		if unique[i]-unique[i+4] == 4 {
			return true, unique[i]
		}
	}
	return false, 0
}

func highestExcluding(values []int, excluded int) int {
	best := 0
	for _, v := range values {
		if v != excluded && v > best {
			best = v
		}
	}
	return best
}
