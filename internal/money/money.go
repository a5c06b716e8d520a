// Package money represents currency amounts as int64 minor units (cents).
// Floats never participate in arithmetic; they exist only at parse and
// display boundaries.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in minor units. The zero value is $0.00.
type Money struct {
	cents int64
}

// NegativeAmountError rejects a negative amount where only non-negative
// values are meaningful (rate quotes, multiplier operands).
type NegativeAmountError struct {
	Amount Money
}

func (e NegativeAmountError) Error() string {
	return fmt.Sprintf("negative amount: %s", e.Amount)
}

func FromMinorUnits(cents int64) Money {
	return Money{cents: cents}
}

// FromFloat converts a float dollar amount, rounding half up at the cent.
// Only for external boundaries (carrier API payloads); internal code keeps
// minor units throughout.
func FromFloat(dollars float64) Money {
	return Money{cents: int64(math.Floor(dollars*100 + 0.5))}
}

// Parse reads a decimal string like "12.34" or "-0.5", quantizing to two
// decimal places with half-up rounding on the third digit.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("parse money: empty string")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return Money{}, fmt.Errorf("parse money: %q", s)
	}
	if intPart == "" {
		intPart = "0"
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("parse money: %q", s)
	}

	cents := whole * 100
	if fracPart != "" {
		for _, r := range fracPart {
			if r < '0' || r > '9' {
				return Money{}, fmt.Errorf("parse money: %q", s)
			}
		}
		switch {
		case len(fracPart) == 1:
			d, _ := strconv.ParseInt(fracPart, 10, 64)
			cents += d * 10
		default:
			d, _ := strconv.ParseInt(fracPart[:2], 10, 64)
			cents += d
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				cents++
			}
		}
	}

	if neg {
		cents = -cents
	}
	return Money{cents: cents}, nil
}

func (m Money) MinorUnits() int64 { return m.cents }

func (m Money) Add(other Money) Money { return Money{cents: m.cents + other.cents} }

func (m Money) Sub(other Money) Money { return Money{cents: m.cents - other.cents} }

func (m Money) Cmp(other Money) int {
	switch {
	case m.cents < other.cents:
		return -1
	case m.cents > other.cents:
		return 1
	default:
		return 0
	}
}

func (m Money) IsZero() bool { return m.cents == 0 }

func (m Money) IsNegative() bool { return m.cents < 0 }

func (m Money) Neg() Money { return Money{cents: -m.cents} }

// String renders like "$8.00"; negatives carry a leading minus, "-$0.50".
func (m Money) String() string {
	cents := m.cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// Multiplier is a rate markup factor stored as hundredths: 125 means 1.25x.
type Multiplier int64

// ParseMultiplier reads a factor like "1.25" into hundredths.
func ParseMultiplier(s string) (Multiplier, error) {
	m, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return Multiplier(m.MinorUnits()), nil
}

func (f Multiplier) String() string {
	v := int64(f)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MulMultiplier scales a non-negative amount by a non-negative factor with
// half-up rounding at the cent.
func (m Money) MulMultiplier(f Multiplier) (Money, error) {
	if m.IsNegative() {
		return Money{}, NegativeAmountError{Amount: m}
	}
	if f < 0 {
		return Money{}, NegativeAmountError{Amount: FromMinorUnits(int64(f))}
	}
	return Money{cents: (m.cents*int64(f) + 50) / 100}, nil
}
