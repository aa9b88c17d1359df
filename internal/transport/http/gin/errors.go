package httpgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/tabgo/internal/domain"
	"github.com/kirinyoku/tabgo/internal/service/admin"
	"github.com/kirinyoku/tabgo/internal/service/checks"
	"github.com/kirinyoku/tabgo/internal/service/ledger"
	"github.com/kirinyoku/tabgo/internal/service/menu"
	"github.com/kirinyoku/tabgo/internal/service/tables"
)

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "validation"})
}

// respondErr maps service errors to status codes. Anything unrecognised is a
// 500 with a generic body; the detail goes to the request log.
func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var verr domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Code: "validation", Field: verr.Field})
		return
	}

	switch {
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "role not permitted", Code: "forbidden"})

	// not found
	case errors.Is(err, checks.ErrCheckNotFound), errors.Is(err, ledger.ErrCheckNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "check not found", Code: "not_found"})
	case errors.Is(err, ledger.ErrLineNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "line not found", Code: "not_found"})
	case errors.Is(err, checks.ErrTableNotFound), errors.Is(err, tables.ErrTableNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "table not found", Code: "not_found"})
	case errors.Is(err, menu.ErrMenuItemNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "menu item not found", Code: "not_found"})

	// conflicts
	case errors.Is(err, checks.ErrRevisionConflict), errors.Is(err, ledger.ErrRevisionConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "check was modified by someone else", Code: "revision_conflict"})
	case errors.Is(err, checks.ErrCheckClosed), errors.Is(err, ledger.ErrCheckClosed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "check is closed", Code: "check_closed"})
	case errors.Is(err, checks.ErrTableSetConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "table already belongs to another open check", Code: "table_conflict"})
	case errors.Is(err, tables.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "table status transition not allowed", Code: "invalid_transition"})
	case errors.Is(err, checks.ErrConflict),
		errors.Is(err, ledger.ErrConflict),
		errors.Is(err, tables.ErrConflict),
		errors.Is(err, admin.ErrTablesConflict),
		errors.Is(err, admin.ErrMenuItemsConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflicting concurrent update, retry", Code: "conflict"})

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
