// Package money holds all monetary arithmetic for the platform.
// Values are integer minor units (cents); floats only appear at the
// JSON boundary where balances are rendered as decimals with two
// fraction digits.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a quantity of money in minor units. It may be negative
// when it represents a delta.
type Amount int64

// epsilon absorbs binary float noise when a decimal value is scaled
// to cents, so 2.30 becomes exactly 230 before directional rounding.
const epsilon = 1e-6

// FromDecimal converts a decimal major-unit value to cents, rounding
// half away from zero.
func FromDecimal(v float64) Amount {
	return Amount(math.Round(v * 100))
}

// Decimal returns the major-unit value of a.
func (a Amount) Decimal() float64 {
	return float64(a) / 100
}

// String renders a with exactly two fraction digits, e.g. "12.34".
func (a Amount) String() string {
	neg := a < 0
	v := int64(a)
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d.%02d", v/100, v%100)
	if neg {
		return "-" + s
	}
	return s
}

// MarshalJSON writes a as a plain decimal number with two fraction
// digits, matching how persisted state stores money.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string and
// converts it to cents, rounding half away from zero.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*a = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	*a = FromDecimal(v)
	return nil
}

// CreditFromDecimal rounds a decimal credit to cents in the house's
// favor, truncating toward zero so the player never receives more
// than the exact value.
func CreditFromDecimal(v float64) Amount {
	return Amount(math.Floor(v*100 + epsilon))
}

// ChargeFromDecimal rounds a decimal charge to cents in the house's
// favor, rounding up so the player never pays less than the exact
// value.
func ChargeFromDecimal(v float64) Amount {
	return Amount(math.Ceil(v*100 - epsilon))
}

// DeltaFromDecimal rounds a signed decimal delta in the house's
// favor: gains truncate down, losses round away from zero.
func DeltaFromDecimal(v float64) Amount {
	if v >= 0 {
		return CreditFromDecimal(v)
	}
	return -ChargeFromDecimal(-v)
}

// BalanceFromDecimal rounds a signed decimal balance in the house's
// favor: positive balances truncate down, debts round up in
// magnitude.
func BalanceFromDecimal(v float64) Amount {
	return DeltaFromDecimal(v)
}

// Rounding selects the direction for integer division remainders.
type Rounding int

const (
	RoundDown Rounding = iota
	RoundUp
)

// MulDiv computes a*num/den entirely in integers, rounding the
// remainder in the given direction. It panics on a zero denominator
// and expects non-negative operands.
func MulDiv(a Amount, num, den int64, r Rounding) Amount {
	if den == 0 {
		panic("money: zero denominator")
	}
	p := int64(a) * num
	q := p / den
	if r == RoundUp && p%den != 0 {
		q++
	}
	return Amount(q)
}

// Percent applies pct (0..100) of a, rounding in the given
// direction. Used for fees and penalties.
func Percent(a Amount, pct float64, r Rounding) Amount {
	v := a.Decimal() * pct / 100
	if r == RoundUp {
		return ChargeFromDecimal(v)
	}
	return CreditFromDecimal(v)
}

// Min returns the smaller of two amounts.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two amounts.
func Max(a, b Amount) Amount {
	if a > b {
		return a
	}
	return b
}

// Clamp bounds a to the inclusive range [lo, hi].
func Clamp(a, lo, hi Amount) Amount {
	if a < lo {
		return lo
	}
	if a > hi {
		return hi
	}
	return a
}
