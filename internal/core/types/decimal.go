// Package types provides money and quantity value types.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value at the edges (input, display).
// Arithmetic inside the engine happens on MinorUnits.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MinorUnitsScale is the number of minor units in one major unit.
const MinorUnitsScale = 100

// MinorUnits represents a monetary value in cents.
// Storage: int64 - sufficient for ±92 quadrillion major units.
type MinorUnits int64

// MinorUnitsFromMoney converts a decimal amount to cents: round(value*100).
// Rounding is half away from zero, applied once.
func MinorUnitsFromMoney(m Money) MinorUnits {
	return MinorUnits(m.Shift(2).Round(0).IntPart())
}

// ParseMinorUnits parses a decimal string into cents.
func ParseMinorUnits(s string) (MinorUnits, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return MinorUnitsFromMoney(d), nil
}

// MustMinorUnits parses a decimal string into cents, panics on error.
// Use only for constants and tests.
func MustMinorUnits(s string) MinorUnits {
	m, err := ParseMinorUnits(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ToMoney converts cents back to a decimal value for display.
func (m MinorUnits) ToMoney() Money {
	return decimal.New(int64(m), -2)
}

// String formats the amount with two fractional digits.
func (m MinorUnits) String() string {
	return m.ToMoney().StringFixed(2)
}

func (m MinorUnits) IsZero() bool     { return m == 0 }
func (m MinorUnits) IsPositive() bool { return m > 0 }
func (m MinorUnits) IsNegative() bool { return m < 0 }
func (m MinorUnits) Neg() MinorUnits  { return -m }
func (m MinorUnits) Abs() MinorUnits {
	if m < 0 {
		return -m
	}
	return m
}

// NonNegative returns m floored at zero.
func (m MinorUnits) NonNegative() MinorUnits {
	return max(m, 0)
}

// Clamp restricts m into [lo, hi]. hi below lo collapses the range to lo.
func (m MinorUnits) Clamp(lo, hi MinorUnits) MinorUnits {
	if hi < lo {
		hi = lo
	}
	return min(max(m, lo), hi)
}

// MulQty multiplies a per-unit price by a whole quantity.
func (m MinorUnits) MulQty(qty int64) MinorUnits {
	return m * MinorUnits(qty)
}

// SumMinorUnits adds amounts without intermediate rounding.
func SumMinorUnits(amounts ...MinorUnits) MinorUnits {
	var total MinorUnits
	for _, a := range amounts {
		total += a
	}
	return total
}

// Quantity is a fixed-point quantity with 4 decimal places (scale = 1e4).
// It carries raw user input; whole-unit quantities are obtained with Whole.
type Quantity int64

const QuantityScale int64 = 10_000

// NewQuantityFromInt creates a Quantity from whole units.
func NewQuantityFromInt(v int64) Quantity { return Quantity(v * QuantityScale) }

func (q Quantity) Int64Scaled() int64 { return int64(q) }

func (q Quantity) Float64() float64 { return float64(q) / float64(QuantityScale) }

// Whole truncates toward zero to whole units.
func (q Quantity) Whole() int64 { return int64(q) / QuantityScale }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

// String returns a decimal string with 4 fractional digits.
func (q Quantity) String() string {
	neg := q < 0
	v := q
	if neg {
		v = -v
	}
	intPart := int64(v) / QuantityScale
	frac := int64(v) % QuantityScale
	if neg {
		return fmt.Sprintf("-%d.%04d", intPart, frac)
	}
	return fmt.Sprintf("%d.%04d", intPart, frac)
}

// MarshalJSON encodes Quantity as JSON number (not string), preserving 4 digits.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string and parses to fixed-point (4 digits).
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	parsed, err := ParseQuantity(string(data))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// ParseQuantity parses a plain decimal string ("12", "3.5", "-0.25").
// Fractional digits beyond the fourth are truncated.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	if strings.ContainsAny(s, "eE") {
		return 0, fmt.Errorf("parse quantity %q: exponent form is not supported", s)
	}

	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = strings.TrimPrefix(s, "-")
	} else {
		s = strings.TrimPrefix(s, "+")
	}

	intPartStr, fracStr, _ := strings.Cut(s, ".")
	if intPartStr == "" {
		intPartStr = "0"
	}
	intPart, err := strconv.ParseInt(intPartStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity integer part: %w", err)
	}

	if len(fracStr) > 4 {
		fracStr = fracStr[:4]
	}
	for len(fracStr) < 4 {
		fracStr += "0"
	}
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity fractional part: %w", err)
	}

	return Quantity(sign * (intPart*QuantityScale + frac)), nil
}
