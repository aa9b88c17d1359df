package tables

import "errors"

var (
	ErrTableNotFound     = errors.New("table not found")
	ErrInvalidTransition = errors.New("table status transition not allowed")
	ErrConflict          = errors.New("conflict")
)
