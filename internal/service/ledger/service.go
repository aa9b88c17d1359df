// Package ledger adds, changes and removes the priced lines of a check and
// keeps its totals and table statuses in step within the same transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kirinyoku/tabgo/internal/domain"
	"github.com/kirinyoku/tabgo/internal/events"
	"github.com/kirinyoku/tabgo/internal/metrics"
	"github.com/kirinyoku/tabgo/internal/repository"
	postgresrepo "github.com/kirinyoku/tabgo/internal/repository/postgres"
	"github.com/kirinyoku/tabgo/internal/service/tables"
	"github.com/kirinyoku/tabgo/internal/uow"
)

// Catalog resolves menu items for menu-backed lines.
type Catalog interface {
	Get(ctx context.Context, id string) (*domain.MenuItem, error)
}

type Config struct {
	TaxRate decimal.Decimal
}

// LineResult is the outcome of a line mutation. Line is nil when the line
// was removed.
type LineResult struct {
	Line    *domain.CheckLine
	Removed bool
	Check   domain.Check
}

type Service struct {
	store   *postgresrepo.Store
	catalog Catalog
	sync    *tables.Synchronizer
	events  *events.Dispatcher
	metrics *metrics.Metrics
	uow     *uow.UoW
	cfg     Config
}

func New(
	store *postgresrepo.Store,
	catalog Catalog,
	sync *tables.Synchronizer,
	dispatcher *events.Dispatcher,
	m *metrics.Metrics,
	cfg Config,
) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		sync:    sync,
		events:  dispatcher,
		metrics: m,
		uow:     uow.NewUoW(store),
		cfg:     cfg,
	}
}

// AddLine appends a line to a live check, recomputes its totals and promotes
// the line's table to ordering.
//
// Parameters:
//   - ctx: request-scoped context.
//   - checkID: the check to add to.
//   - in: the line; a nil Qty means 1, name and price fall back to the menu
//     item when MenuItemID is set.
//
// Returns:
//   - *LineResult: the inserted line and the check at its new revision.
//   - error: domain.ValidationError for bad input.
//   - error: ledger.ErrRevisionConflict if ExpectedRevision is set and stale.
//   - error: ledger.ErrCheckClosed if the check is closed or voided.
//   - error: ledger.ErrCheckNotFound if the check does not exist.
func (s *Service) AddLine(ctx context.Context, checkID uuid.UUID, in domain.NewLine) (*LineResult, error) {
	const op = "service.ledger.AddLine"

	in, err := s.prepareLine(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var res LineResult

	err = s.uow.DoWithOpts(ctx, uow.ReadCommitted, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		check, err := s.store.Checks().With(tx).BumpRevision(ctx, checkID, in.ExpectedRevision)
		if err != nil {
			return err
		}

		tableID, err := resolveTable(check, in.TableID)
		if err != nil {
			return err
		}

		line, err := s.store.Lines().With(tx).Insert(ctx, domain.CheckLine{
			CheckID:     checkID,
			TableID:     tableID,
			MenuItemID:  in.MenuItemID,
			Name:        in.Name,
			Seat:        in.Seat,
			Price:       in.Price,
			Qty:         *in.Qty,
			ModifierKey: in.ModifierKey,
			Modifiers:   in.Modifiers,
		})
		if err != nil {
			return err
		}

		updated, transitions, err := s.settle(ctx, tx, checkID, []string{tableID})
		if err != nil {
			return err
		}

		res = LineResult{Line: line, Check: *updated}

		s.announce(after, "add_line", *updated, transitions)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, s.mapErr(op, err))
	}

	return &res, nil
}

// UpdateLine changes one line. A resulting quantity of zero or less removes
// the line, and its table returns to open once no line of a live check
// remains on it.
//
// Parameters:
//   - ctx: request-scoped context.
//   - staff: the acting staff member; comping needs a manager or admin.
//   - checkID: the check the line belongs to.
//   - patch: fields to change; nil fields are left untouched.
//
// Returns:
//   - *LineResult: the updated line, or Removed with a nil Line.
//   - error: ledger.ErrLineNotFound if the line is not on the check.
//   - error: ledger.ErrRevisionConflict if ExpectedRevision is set and stale.
//   - error: ledger.ErrCheckClosed if the check is closed or voided.
//   - error: ledger.ErrCheckNotFound if the check does not exist.
func (s *Service) UpdateLine(
	ctx context.Context,
	staff domain.Staff,
	checkID uuid.UUID,
	patch domain.LinePatch,
) (*LineResult, error) {
	const op = "service.ledger.UpdateLine"

	patch, err := validatePatch(staff, patch)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var res LineResult

	err = s.uow.DoWithOpts(ctx, uow.ReadCommitted, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if _, err := s.store.Checks().With(tx).BumpRevision(ctx, checkID, patch.ExpectedRevision); err != nil {
			return err
		}

		lines := s.store.Lines().With(tx)

		current, err := lines.GetForUpdate(ctx, checkID, patch.LineID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrLineNotFound
			}
			return err
		}

		next := patch.Apply(*current)

		if next.Qty <= 0 {
			if err := lines.Delete(ctx, checkID, current.ID); err != nil {
				return err
			}
			res.Removed = true
		} else {
			line, err := lines.Update(ctx, next)
			if err != nil {
				return err
			}
			res.Line = line
		}

		updated, transitions, err := s.settle(ctx, tx, checkID, []string{current.TableID})
		if err != nil {
			return err
		}

		res.Check = *updated

		name := "update_line"
		if res.Removed {
			name = "remove_line"
		}
		s.announce(after, name, *updated, transitions)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, s.mapErr(op, err))
	}

	return &res, nil
}

// ClearLines removes every line of a check, zeroes its money fields and
// releases its tables unless another live check still has lines on them.
//
// Returns:
//   - domain.Check: the check at its new revision.
//   - error: ledger.ErrRevisionConflict if expectedRevision is set and stale.
//   - error: ledger.ErrCheckClosed if the check is closed or voided.
//   - error: ledger.ErrCheckNotFound if the check does not exist.
func (s *Service) ClearLines(ctx context.Context, checkID uuid.UUID, expectedRevision *int64) (*domain.Check, error) {
	const op = "service.ledger.ClearLines"

	var check domain.Check

	err := s.uow.DoWithOpts(ctx, uow.ReadCommitted, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		bumped, err := s.store.Checks().With(tx).BumpRevision(ctx, checkID, expectedRevision)
		if err != nil {
			return err
		}

		if _, err := s.store.Lines().With(tx).DeleteByCheck(ctx, checkID); err != nil {
			return err
		}

		updated, transitions, err := s.settle(ctx, tx, checkID, bumped.TableIDs)
		if err != nil {
			return err
		}

		check = *updated

		s.announce(after, "clear_lines", *updated, transitions)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, s.mapErr(op, err))
	}

	return &check, nil
}

// settle recomputes the check from its committed line set and synchronizes
// the touched tables.
func (s *Service) settle(
	ctx context.Context,
	tx postgresrepo.DB,
	checkID uuid.UUID,
	tableIDs []string,
) (*domain.Check, []domain.TableTransition, error) {
	lines, err := s.store.Lines().With(tx).ListByCheck(ctx, checkID)
	if err != nil {
		return nil, nil, err
	}

	totals := domain.ComputeTotals(lines, s.cfg.TaxRate)

	check, err := s.store.Checks().With(tx).ApplyTotals(ctx, checkID, totals, domain.DerivedStatus(len(lines)))
	if err != nil {
		return nil, nil, err
	}

	transitions, err := s.sync.Sync(ctx, tx, tableIDs)
	if err != nil {
		return nil, nil, err
	}

	return check, transitions, nil
}

func (s *Service) announce(
	after func(uow.AfterCommit),
	name string,
	check domain.Check,
	transitions []domain.TableTransition,
) {
	after(func(ctx context.Context) {
		s.metrics.Mutation(name)
		s.events.CheckChanged(ctx, check)
		if len(transitions) > 0 {
			s.events.TablesChanged(ctx)
		}
	})
}

// prepareLine fills menu defaults and validates a new line before any write.
func (s *Service) prepareLine(ctx context.Context, in domain.NewLine) (domain.NewLine, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Seat = strings.TrimSpace(in.Seat)
	in.TableID = strings.TrimSpace(in.TableID)

	if in.MenuItemID != nil && (in.Name == "" || in.Price == 0) {
		if s.catalog == nil {
			return in, domain.Invalid("menuItemId", "menu lookup unavailable")
		}

		item, err := s.catalog.Get(ctx, *in.MenuItemID)
		if err != nil {
			return in, err
		}

		if !item.Available {
			return in, domain.Invalid("menuItemId", "item is not available")
		}

		if in.Name == "" {
			in.Name = item.Name
		}
		if in.Price == 0 {
			in.Price = item.Price
		}
		if in.ModifierKey == nil {
			in.ModifierKey = item.ModifierKey
		}
	}

	if in.Name == "" {
		return in, domain.Invalid("name", "is required")
	}

	if in.Seat == "" {
		return in, domain.Invalid("seat", "is required")
	}

	if in.Price <= 0 {
		return in, domain.Invalid("price", "must be positive")
	}
	if in.Price > domain.MaxUnitPrice {
		return in, domain.Invalid("price", "must not exceed "+domain.MaxUnitPrice.String())
	}

	qty := 1
	if in.Qty != nil {
		qty = *in.Qty
	}
	if qty < 1 || qty > domain.MaxLineQty {
		return in, domain.Invalid("qty", fmt.Sprintf("must be between 1 and %d", domain.MaxLineQty))
	}
	in.Qty = &qty

	if in.ExpectedRevision != nil && *in.ExpectedRevision < 1 {
		return in, domain.Invalid("expectedRevision", "must be at least 1")
	}

	in.Modifiers = cleanModifiers(in.Modifiers)

	return in, nil
}

func validatePatch(staff domain.Staff, p domain.LinePatch) (domain.LinePatch, error) {
	if p.LineID == uuid.Nil {
		return p, domain.Invalid("lineId", "is required")
	}

	if p.Qty == nil && p.Comp == nil && p.SplitMode == nil && p.TransferTo == nil &&
		p.CustomSplitNote == nil && p.Modifiers == nil {
		return p, domain.Invalid("", "no fields to update")
	}

	if p.Qty != nil && *p.Qty > domain.MaxLineQty {
		return p, domain.Invalid("qty", fmt.Sprintf("must not exceed %d", domain.MaxLineQty))
	}

	if p.SplitMode != nil && !p.SplitMode.Valid() {
		return p, domain.Invalid("splitMode", "must be none, even or custom")
	}

	if p.ExpectedRevision != nil && *p.ExpectedRevision < 1 {
		return p, domain.Invalid("expectedRevision", "must be at least 1")
	}

	if p.Comp != nil && !staff.Role.CanComp() {
		return p, domain.ErrForbidden
	}

	if p.Modifiers != nil {
		cleaned := cleanModifiers(*p.Modifiers)
		p.Modifiers = &cleaned
	}

	return p, nil
}

// resolveTable picks the table a new line belongs to. An omitted table is
// only accepted for single-table checks.
func resolveTable(check *domain.Check, tableID string) (string, error) {
	if tableID == "" {
		if len(check.TableIDs) == 1 {
			return check.TableIDs[0], nil
		}
		return "", domain.Invalid("tableId", "required for checks covering several tables")
	}

	if !check.Covers(tableID) {
		return "", domain.Invalid("tableId", "table is not part of this check")
	}

	return tableID, nil
}

func cleanModifiers(mods []string) []string {
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func (s *Service) mapErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrRevisionConflict):
		s.metrics.Conflict(op, "revision")
		return ErrRevisionConflict
	case errors.Is(err, repository.ErrCheckClosed):
		s.metrics.Conflict(op, "closed")
		return ErrCheckClosed
	case errors.Is(err, repository.ErrNotFound):
		return ErrCheckNotFound
	case errors.Is(err, repository.ErrConflict):
		s.metrics.Conflict(op, "serialization")
		return ErrConflict
	}
	return err
}
