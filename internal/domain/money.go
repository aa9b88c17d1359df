package domain

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// Cents is an amount of money in the smallest currency unit.
// On the wire it is a plain JSON number with two decimals (27.00).
type Cents int64

// Line limits. MaxUnitPrice × MaxLineQty summed over any realistic number of
// lines stays far inside int64.
const (
	MaxUnitPrice Cents = 100_000_000 // 1,000,000.00
	MaxLineQty         = 10_000
)

var (
	ErrCentsOutOfRange = errors.New("amount out of range")
	ErrSubCent         = errors.New("amount has fractions of a cent")
)

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// CentsFromDecimal converts a whole-cent decimal amount. Fractions of a cent
// and values outside int64 are errors, never rounded or wrapped.
func CentsFromDecimal(d decimal.Decimal) (Cents, error) {
	shifted := d.Shift(2)

	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, ErrSubCent
	}

	if shifted.GreaterThan(maxCents) || shifted.LessThan(minCents) {
		return 0, ErrCentsOutOfRange
	}

	return Cents(shifted.IntPart()), nil
}

func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts both 4.5 and "4.50".
func (c *Cents) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}

	v, err := CentsFromDecimal(d)
	if err != nil {
		return err
	}

	*c = v

	return nil
}
