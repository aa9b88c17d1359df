package checks

import "errors"

var (
	ErrCheckNotFound    = errors.New("check not found")
	ErrTableNotFound    = errors.New("table not found")
	ErrTableSetConflict = errors.New("table already belongs to another open check")
	ErrRevisionConflict = errors.New("check was modified by someone else")
	ErrCheckClosed      = errors.New("check is closed")
	ErrConflict         = errors.New("conflict")
)
