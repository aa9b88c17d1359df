package repository

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrRevisionConflict = errors.New("revision conflict")
	ErrCheckClosed      = errors.New("check is closed")
)
