package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTableIDs(t *testing.T) {
	got, err := NormalizeTableIDs([]string{" T3", "T1", "T3", "T2 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2", "T3"}, got)
	assert.Equal(t, "T1,T2,T3", TableKey(got))

	_, err = NormalizeTableIDs(nil)
	assert.ErrorIs(t, err, ErrEmptyTableSet)

	_, err = NormalizeTableIDs([]string{"T1", "  "})
	assert.ErrorIs(t, err, ErrInvalidTableID)
}

func TestTableKey_SeparatorInIDIsRejected(t *testing.T) {
	pair, err := NormalizeTableIDs([]string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, "A,B", TableKey(pair))

	_, err = NormalizeTableIDs([]string{"A,B"})
	assert.ErrorIs(t, err, ErrInvalidTableID)

	assert.ErrorIs(t, ValidateTableID("A,B"), ErrInvalidTableID)
	assert.NoError(t, ValidateTableID("Patio-4"))
}

func TestCanStaffTransition(t *testing.T) {
	assert.True(t, CanStaffTransition(TableOrdering, TableServed))
	assert.True(t, CanStaffTransition(TableServed, TablePaying))
	assert.False(t, CanStaffTransition(TableOpen, TableServed))
	assert.False(t, CanStaffTransition(TableOrdering, TablePaying))
	assert.False(t, CanStaffTransition(TableServed, TableOpen))
	assert.False(t, CanStaffTransition(TablePaying, TableOrdering))
}

func TestLinePatchApply(t *testing.T) {
	qty := 0
	comp := true
	mode := SplitEven
	blank := ""
	note := "split with T2"

	orig := CheckLine{Qty: 6, TransferTo: &note, Modifiers: []string{"lemon"}}
	got := LinePatch{Qty: &qty, Comp: &comp, SplitMode: &mode, TransferTo: &blank}.Apply(orig)

	assert.Equal(t, 0, got.Qty)
	assert.True(t, got.Comp)
	assert.Equal(t, SplitEven, got.SplitMode)
	assert.Nil(t, got.TransferTo)
	assert.Equal(t, []string{"lemon"}, got.Modifiers)
	assert.Equal(t, 6, orig.Qty)
}
