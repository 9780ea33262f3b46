package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount (e.g. 1000.00) to integer cents,
// rounding half away from zero. This is the only place amounts leave decimal.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// ParseMinorUnits parses a string amount such as "1000.00" into cents.
func ParseMinorUnits(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	return ToMinorUnits(d), nil
}

// FromMinorUnits converts cents back to a major-unit decimal for display.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
