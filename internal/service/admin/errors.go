package admin

import (
	"errors"
)

var (
	ErrTablesConflict    = errors.New("tables could not be saved")
	ErrMenuItemsConflict = errors.New("menu items could not be saved")
)
