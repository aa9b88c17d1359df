package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrEmptyTableSet  = errors.New("table set is empty")
	ErrInvalidTableID = errors.New("table id must be non-blank and must not contain " + tableKeySep)
)

// tableKeySep joins table ids into a set key, so no id may contain it.
const tableKeySep = ","

// ValidateTableID checks one trimmed table id.
func ValidateTableID(id string) error {
	if id == "" || strings.Contains(id, tableKeySep) {
		return ErrInvalidTableID
	}
	return nil
}

// NormalizeTableIDs trims, de-duplicates and sorts table ids so that the same
// set always produces the same key.
func NormalizeTableIDs(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		id = strings.TrimSpace(id)
		if err := ValidateTableID(id); err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	if len(out) == 0 {
		return nil, ErrEmptyTableSet
	}

	sort.Strings(out)

	return out, nil
}

// TableKey is the canonical key of a normalized table set.
func TableKey(normalized []string) string {
	return strings.Join(normalized, tableKeySep)
}

// CanStaffTransition reports whether staff may move a table from one status to
// another. open/ordering are owned by line presence and never set by hand.
func CanStaffTransition(from, to TableStatus) bool {
	switch to {
	case TableServed:
		return from == TableOrdering || from == TableServed || from == TablePaying
	case TablePaying:
		return from == TableServed || from == TablePaying
	}
	return false
}
