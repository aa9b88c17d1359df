package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/tabgo/internal/domain"
	"github.com/kirinyoku/tabgo/internal/events"
	"github.com/kirinyoku/tabgo/internal/metrics"
	"github.com/kirinyoku/tabgo/internal/repository"
	postgresrepo "github.com/kirinyoku/tabgo/internal/repository/postgres"
	"github.com/kirinyoku/tabgo/internal/service/tables"
	"github.com/kirinyoku/tabgo/internal/uow"
)

var readSnapshot = &pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

type Config struct {
	DefaultCourse string
}

type Service struct {
	store   *postgresrepo.Store
	sync    *tables.Synchronizer
	events  *events.Dispatcher
	metrics *metrics.Metrics
	uow     *uow.UoW
	cfg     Config
}

func New(
	store *postgresrepo.Store,
	sync *tables.Synchronizer,
	dispatcher *events.Dispatcher,
	m *metrics.Metrics,
	cfg Config,
) *Service {
	if strings.TrimSpace(cfg.DefaultCourse) == "" {
		cfg.DefaultCourse = "apps"
	}

	return &Service{
		store:   store,
		sync:    sync,
		events:  dispatcher,
		metrics: m,
		uow:     uow.NewUoW(store),
		cfg:     cfg,
	}
}

// EnsureForTables returns the live check covering exactly tableIDs, creating
// it when there is none. Concurrent calls for the same set converge on one
// check through the live table-key index.
//
// Parameters:
//   - ctx: request-scoped context.
//   - staff: the staff member opening the check.
//   - tableIDs: the tables the check covers, in any order.
//
// Returns:
//   - *domain.Check: the live check.
//   - bool: true when this call created it.
//   - error: checks.ErrTableNotFound if a table does not exist.
//   - error: checks.ErrTableSetConflict if a table belongs to a different live check.
func (s *Service) EnsureForTables(
	ctx context.Context,
	staff domain.Staff,
	tableIDs []string,
) (*domain.Check, bool, error) {
	const op = "service.checks.EnsureForTables"

	ids, err := domain.NormalizeTableIDs(tableIDs)
	if err != nil {
		return nil, false, fmt.Errorf("%s:%w", op, domain.Invalid("tableIds", err.Error()))
	}

	key := domain.TableKey(ids)

	var (
		check   *domain.Check
		created bool
	)

	err = s.uow.DoWithOpts(ctx, uow.ReadCommitted, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		repo := s.store.Checks().With(tx)

		existing, err := repo.FindLiveByTableKey(ctx, key)
		if err == nil {
			check = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		c, ok, err := repo.Create(ctx, ids, s.cfg.DefaultCourse, staff.Email)
		if err != nil {
			return err
		}

		if !ok {
			// a concurrent caller won the insert; its row is committed by now
			winner, err := repo.FindLiveByTableKey(ctx, key)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return repository.ErrConflict
				}
				return err
			}
			check = winner
			return nil
		}

		if err := repo.LinkTables(ctx, c.ID, ids); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return ErrTableNotFound
			case errors.Is(err, repository.ErrConflict):
				return ErrTableSetConflict
			}
			return err
		}

		check = c
		created = true

		after(func(ctx context.Context) {
			s.metrics.Mutation("ensure_check")
			s.events.CheckChanged(ctx, *c)
		})

		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%s:%w", op, s.mapErr(op, err))
	}

	return check, created, nil
}

// Get returns a check with its lines and per-seat breakdown, read from one
// snapshot so revision and lines agree.
//
// Returns:
//   - error: checks.ErrCheckNotFound if the check does not exist.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.CheckDetail, error) {
	const op = "service.checks.Get"

	var detail domain.CheckDetail

	err := s.store.RunTx(ctx, readSnapshot, func(ctx context.Context, tx postgresrepo.DB) error {
		c, err := s.store.Checks().With(tx).Get(ctx, id)
		if err != nil {
			return err
		}

		lines, err := s.store.Lines().With(tx).ListByCheck(ctx, id)
		if err != nil {
			return err
		}

		detail = domain.CheckDetail{
			Check: *c,
			Lines: lines,
			Seats: domain.SeatBreakdown(lines),
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrCheckNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &detail, nil
}

// Update applies the supplied check-level fields when the stored revision
// equals patch.ExpectedRevision. Closing or voiding releases the check's
// tables in the same transaction.
//
// Parameters:
//   - ctx: request-scoped context.
//   - staff: the acting staff member; voiding needs a manager or admin.
//   - id: the check to update.
//   - patch: fields to change; nil fields are left untouched.
//
// Returns:
//   - *domain.Check: the committed check at ExpectedRevision+1.
//   - error: checks.ErrRevisionConflict if the revision moved on.
//   - error: checks.ErrCheckClosed if the check is closed or voided.
//   - error: checks.ErrCheckNotFound if the check does not exist.
func (s *Service) Update(
	ctx context.Context,
	staff domain.Staff,
	id uuid.UUID,
	patch domain.CheckPatch,
) (*domain.Check, error) {
	const op = "service.checks.Update"

	patch, err := normalizePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if patch.Status != nil && *patch.Status == domain.CheckVoided && !staff.Role.CanComp() {
		return nil, fmt.Errorf("%s:%w", op, domain.ErrForbidden)
	}

	var check *domain.Check

	err = s.uow.DoWithOpts(ctx, uow.ReadCommitted, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		repo := s.store.Checks().With(tx)

		c, err := repo.UpdateFields(ctx, id, patch)
		if err != nil {
			return err
		}

		var transitions []domain.TableTransition
		if c.Status.Terminal() {
			if err := repo.UnlinkTables(ctx, c.ID); err != nil {
				return err
			}

			transitions, err = s.sync.Sync(ctx, tx, c.TableIDs)
			if err != nil {
				return err
			}
		}

		check = c

		after(func(ctx context.Context) {
			s.metrics.Mutation("update_check")
			s.events.CheckChanged(ctx, *c)
			if c.Status.Terminal() {
				s.events.CheckSettled(ctx, *c)
			}
			if len(transitions) > 0 {
				s.events.TablesChanged(ctx)
			}
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, s.mapErr(op, err))
	}

	return check, nil
}

func normalizePatch(p domain.CheckPatch) (domain.CheckPatch, error) {
	if p.Empty() {
		return p, domain.Invalid("", "no fields to update")
	}

	if p.ExpectedRevision < 1 {
		return p, domain.Invalid("expectedRevision", "must be at least 1")
	}

	if p.GuestNames != nil {
		names := make([]string, 0, len(*p.GuestNames))
		for _, n := range *p.GuestNames {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		p.GuestNames = &names
	}

	if p.CurrentCourse != nil {
		course := strings.TrimSpace(*p.CurrentCourse)
		if course == "" {
			return p, domain.Invalid("currentCourse", "must not be blank")
		}
		p.CurrentCourse = &course
	}

	if p.ReceiptNote != nil {
		note := strings.TrimSpace(*p.ReceiptNote)
		p.ReceiptNote = &note
	}

	if p.Status != nil {
		if !p.Status.Valid() {
			return p, domain.Invalid("status", "unknown status")
		}
		if !p.Status.Terminal() {
			return p, domain.Invalid("status", "only closed or voided can be set")
		}
	}

	return p, nil
}

// mapErr turns repository failures into this package's errors and counts
// rejected writes.
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
