package domain

import (
	"time"

	"github.com/google/uuid"
)

type TableStatus string

const (
	TableOpen     TableStatus = "open"
	TableOrdering TableStatus = "ordering"
	TableServed   TableStatus = "served"
	TablePaying   TableStatus = "paying"
)

func (s TableStatus) Valid() bool {
	switch s {
	case TableOpen, TableOrdering, TableServed, TablePaying:
		return true
	}
	return false
}

type CheckStatus string

const (
	CheckOpen   CheckStatus = "open"
	CheckActive CheckStatus = "active"
	CheckClosed CheckStatus = "closed"
	CheckVoided CheckStatus = "voided"
)

func (s CheckStatus) Valid() bool {
	switch s {
	case CheckOpen, CheckActive, CheckClosed, CheckVoided:
		return true
	}
	return false
}

// Terminal reports whether the check no longer accepts mutations.
func (s CheckStatus) Terminal() bool {
	return s == CheckClosed || s == CheckVoided
}

type SplitMode string

const (
	SplitNone   SplitMode = "none"
	SplitEven   SplitMode = "even"
	SplitCustom SplitMode = "custom"
)

func (m SplitMode) Valid() bool {
	switch m {
	case SplitNone, SplitEven, SplitCustom:
		return true
	}
	return false
}

type Table struct {
	ID         string      `json:"id"`
	Label      string      `json:"label"`
	Zone       string      `json:"zone"`
	Seats      int         `json:"seats"`
	Combinable bool        `json:"combinable"`
	Status     TableStatus `json:"status"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// TableTransition records a status change applied by the synchronizer.
type TableTransition struct {
	TableID string      `json:"tableId"`
	Status  TableStatus `json:"status"`
}

type Totals struct {
	Subtotal  Cents `json:"subtotal"`
	CompTotal Cents `json:"compTotal"`
	Tax       Cents `json:"tax"`
	Total     Cents `json:"total"`
}

type Check struct {
	ID            uuid.UUID   `json:"id"`
	TableIDs      []string    `json:"tableIds"`
	Status        CheckStatus `json:"status"`
	GuestNames    []string    `json:"guestNames"`
	CurrentCourse string      `json:"currentCourse"`
	ReceiptNote   *string     `json:"receiptNote,omitempty"`
	Totals
	Revision  int64      `json:"revision"`
	OpenedBy  string     `json:"openedBy"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
}

// Covers reports whether tableID is part of the check's table set.
func (c *Check) Covers(tableID string) bool {
	for _, id := range c.TableIDs {
		if id == tableID {
			return true
		}
	}
	return false
}

type CheckLine struct {
	ID              uuid.UUID `json:"id"`
	CheckID         uuid.UUID `json:"checkId"`
	TableID         string    `json:"tableId"`
	MenuItemID      *string   `json:"menuItemId,omitempty"`
	Name            string    `json:"name"`
	Seat            string    `json:"seat"`
	Price           Cents     `json:"price"`
	Qty             int       `json:"qty"`
	ModifierKey     *string   `json:"modifierKey,omitempty"`
	Modifiers       []string  `json:"modifiers"`
	Comp            bool      `json:"comp"`
	SplitMode       SplitMode `json:"splitMode"`
	TransferTo      *string   `json:"transferTo,omitempty"`
	CustomSplitNote *string   `json:"customSplitNote,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Amount is price × qty for the line.
func (l CheckLine) Amount() Cents {
	return l.Price * Cents(l.Qty)
}

type SeatTotals struct {
	Seat       string `json:"seat"`
	Subtotal   Cents  `json:"subtotal"`
	CompTotal  Cents  `json:"compTotal"`
	Chargeable Cents  `json:"chargeable"`
}

type CheckDetail struct {
	Check
	Lines []CheckLine  `json:"lines"`
	Seats []SeatTotals `json:"seats"`
}

type MenuItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       Cents    `json:"price"`
	ModifierKey *string  `json:"modifierKey,omitempty"`
	Modifiers   []string `json:"modifiers"`
	Available   bool     `json:"available"`
}

// CheckChanged is broadcast after every committed check mutation.
type CheckChanged struct {
	Type     string    `json:"type"`
	CheckID  uuid.UUID `json:"checkId"`
	Revision int64     `json:"revision"`
	TableIDs []string  `json:"tableIds"`
	TsUnix   int64     `json:"tsUnix"`
}

// CheckSettled is emitted once a check reaches a terminal status.
type CheckSettled struct {
	CheckID  uuid.UUID   `json:"checkId"`
	Status   CheckStatus `json:"status"`
	TableIDs []string    `json:"tableIds"`
	Totals   Totals      `json:"totals"`
	Revision int64       `json:"revision"`
	OpenedBy string      `json:"openedBy"`
	ClosedAt time.Time   `json:"closedAt"`
}
