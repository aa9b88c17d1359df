package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var rate13 = decimal.RequireFromString("0.13")

func TestComputeTotals(t *testing.T) {
	oysters := CheckLine{Name: "Oyster", Seat: "T1-seat-1", Price: 450, Qty: 6}

	t.Run("plain line", func(t *testing.T) {
		got := ComputeTotals([]CheckLine{oysters}, rate13)

		assert.Equal(t, Totals{Subtotal: 2700, CompTotal: 0, Tax: 351, Total: 3051}, got)
	})

	t.Run("comped line zeroes tax and total", func(t *testing.T) {
		comped := oysters
		comped.Comp = true

		got := ComputeTotals([]CheckLine{comped}, rate13)

		assert.Equal(t, Totals{Subtotal: 2700, CompTotal: 2700, Tax: 0, Total: 0}, got)
	})

	t.Run("no lines", func(t *testing.T) {
		assert.Equal(t, Totals{}, ComputeTotals(nil, rate13))
	})

	t.Run("mixed lines", func(t *testing.T) {
		wine := CheckLine{Name: "Wine", Seat: "T1-seat-2", Price: 1200, Qty: 2, Comp: true}
		bread := CheckLine{Name: "Bread", Seat: "T1-seat-2", Price: 325, Qty: 1}

		got := ComputeTotals([]CheckLine{oysters, wine, bread}, rate13)

		assert.Equal(t, Cents(2700+2400+325), got.Subtotal)
		assert.Equal(t, Cents(2400), got.CompTotal)
		// 3025 * 0.13 = 393.25
		assert.Equal(t, Cents(393), got.Tax)
		assert.Equal(t, got.Subtotal-got.CompTotal+got.Tax, got.Total)
	})
}

func TestTaxOnRoundsHalfUp(t *testing.T) {
	rate := decimal.RequireFromString("0.10")

	assert.Equal(t, Cents(1), TaxOn(5, rate))  // 0.5
	assert.Equal(t, Cents(0), TaxOn(4, rate))  // 0.4
	assert.Equal(t, Cents(2), TaxOn(15, rate)) // 1.5
	assert.Equal(t, Cents(0), TaxOn(0, rate13))
}

func TestSeatBreakdown(t *testing.T) {
	lines := []CheckLine{
		{Seat: "T1-seat-2", Price: 1000, Qty: 1, Comp: true},
		{Seat: "T1-seat-1", Price: 450, Qty: 2},
		{Seat: "T1-seat-2", Price: 300, Qty: 1},
	}

	got := SeatBreakdown(lines)

	assert.Equal(t, []SeatTotals{
		{Seat: "T1-seat-1", Subtotal: 900, CompTotal: 0, Chargeable: 900},
		{Seat: "T1-seat-2", Subtotal: 1300, CompTotal: 1000, Chargeable: 300},
	}, got)
}

func TestDerivedStatus(t *testing.T) {
	assert.Equal(t, CheckOpen, DerivedStatus(0))
	assert.Equal(t, CheckActive, DerivedStatus(3))
}
