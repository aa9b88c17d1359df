package domain

import "github.com/google/uuid"

// CheckPatch carries the check-level fields of an update. Nil means "not supplied".
type CheckPatch struct {
	GuestNames       *[]string
	CurrentCourse    *string
	ReceiptNote      *string
	Status           *CheckStatus
	ExpectedRevision int64
}

func (p CheckPatch) Empty() bool {
	return p.GuestNames == nil && p.CurrentCourse == nil && p.ReceiptNote == nil && p.Status == nil
}

type NewLine struct {
	Name             string
	Seat             string
	TableID          string
	Price            Cents
	Qty              *int // nil means 1
	MenuItemID       *string
	ModifierKey      *string
	Modifiers        []string
	ExpectedRevision *int64
}

type LinePatch struct {
	LineID           uuid.UUID
	Qty              *int
	Comp             *bool
	SplitMode        *SplitMode
	TransferTo       *string
	CustomSplitNote  *string
	Modifiers        *[]string
	ExpectedRevision *int64
}

// Apply returns a copy of l with the patch applied.
func (p LinePatch) Apply(l CheckLine) CheckLine {
	if p.Qty != nil {
		l.Qty = *p.Qty
	}
	if p.Comp != nil {
		l.Comp = *p.Comp
	}
	if p.SplitMode != nil {
		l.SplitMode = *p.SplitMode
	}
	if p.TransferTo != nil {
		l.TransferTo = emptyToNil(*p.TransferTo)
	}
	if p.CustomSplitNote != nil {
		l.CustomSplitNote = emptyToNil(*p.CustomSplitNote)
	}
	if p.Modifiers != nil {
		l.Modifiers = append([]string{}, (*p.Modifiers)...)
	}
	return l
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
