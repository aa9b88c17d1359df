package ledger

import "errors"

var (
	ErrCheckNotFound    = errors.New("check not found")
	ErrLineNotFound     = errors.New("line not found")
	ErrRevisionConflict = errors.New("check was modified by someone else")
	ErrCheckClosed      = errors.New("check is closed")
	ErrConflict         = errors.New("conflict")
)
