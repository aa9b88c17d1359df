package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ComputeTotals derives the money fields of a check from its full line set.
//
// subtotal = Σ price×qty, compTotal = Σ price×qty over comp lines,
// tax = (subtotal − compTotal) × taxRate rounded half-up to the cent,
// total = subtotal − compTotal + tax.
func ComputeTotals(lines []CheckLine, taxRate decimal.Decimal) Totals {
	var t Totals

	for _, l := range lines {
		amount := l.Amount()
		t.Subtotal += amount
		if l.Comp {
			t.CompTotal += amount
		}
	}

	base := t.Subtotal - t.CompTotal
	t.Tax = TaxOn(base, taxRate)
	t.Total = base + t.Tax

	return t
}

// TaxOn applies rate to a non-negative base. Halves round up.
func TaxOn(base Cents, rate decimal.Decimal) Cents {
	return Cents(decimal.NewFromInt(int64(base)).Mul(rate).Round(0).IntPart())
}

// SeatBreakdown groups line amounts by seat label, ordered by seat.
func SeatBreakdown(lines []CheckLine) []SeatTotals {
	bySeat := make(map[string]*SeatTotals)
	for _, l := range lines {
		st, ok := bySeat[l.Seat]
		if !ok {
			st = &SeatTotals{Seat: l.Seat}
			bySeat[l.Seat] = st
		}

		amount := l.Amount()
		st.Subtotal += amount
		if l.Comp {
			st.CompTotal += amount
		}
		st.Chargeable = st.Subtotal - st.CompTotal
	}

	out := make([]SeatTotals, 0, len(bySeat))
	for _, st := range bySeat {
		out = append(out, *st)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })

	return out
}

// DerivedStatus is the non-terminal check status implied by its line count.
func DerivedStatus(lineCount int) CheckStatus {
	if lineCount > 0 {
		return CheckActive
	}
	return CheckOpen
}
