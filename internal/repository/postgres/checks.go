package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/tabgo/internal/domain"
	"github.com/kirinyoku/tabgo/internal/repository"
)

const checkColumns = `id, table_ids, status, guest_names, current_course, receipt_note,
	subtotal_cents, comp_total_cents, tax_cents, total_cents,
	revision, opened_by, created_at, updated_at, closed_at`

type CheckRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CheckRepo) With(db DB) *CheckRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CheckRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Get retrieves a check by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the check does not exist.
func (r *CheckRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Check, error) {
	const op = "postgres.CheckRepo.Get"

	c, err := scanCheck(r.handle().QueryRow(ctx,
		`SELECT `+checkColumns+`
		 FROM checks WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return c, nil
}

// FindLiveByTableKey returns the open or active check covering exactly the
// table set identified by key.
//
// Returns:
//   - error: repository.ErrNotFound if no live check covers the set.
func (r *CheckRepo) FindLiveByTableKey(ctx context.Context, key string) (*domain.Check, error) {
	const op = "postgres.CheckRepo.FindLiveByTableKey"

	c, err := scanCheck(r.handle().QueryRow(ctx,
		`SELECT `+checkColumns+`
		 FROM checks
		 WHERE table_key = $1 AND status IN ('open', 'active')`,
		key,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return c, nil
}

// Create inserts a new open check at revision 1 unless a live check already
// holds the same table key, in which case created is false and the caller
// must re-read the winner.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - tableIDs: normalized table set the check covers.
//   - course: initial course label.
//   - openedBy: identity of the staff member opening the check.
//
// Returns:
//   - *domain.Check: the created check when created is true.
//   - bool: whether this call created the row.
func (r *CheckRepo) Create(
	ctx context.Context,
	tableIDs []string,
	course string,
	openedBy string,
) (*domain.Check, bool, error) {
	const op = "postgres.CheckRepo.Create"

	c, err := scanCheck(r.handle().QueryRow(ctx,
		`INSERT INTO checks (id, table_key, table_ids, status, current_course, revision, opened_by)
		 VALUES ($1, $2, $3, 'open', $4, 1, $5)
		 ON CONFLICT (table_key) WHERE status IN ('open', 'active') DO NOTHING
		 RETURNING `+checkColumns,
		uuid.New(), domain.TableKey(tableIDs), tableIDs, course, openedBy,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return c, true, nil
}

// LinkTables records the check as the live check of each of its tables.
//
// Returns:
//   - error: repository.ErrConflict if a table already belongs to another live check.
//   - error: repository.ErrNotFound if a table does not exist.
func (r *CheckRepo) LinkTables(ctx context.Context, checkID uuid.UUID, tableIDs []string) error {
	const op = "postgres.CheckRepo.LinkTables"

	_, err := r.handle().Exec(ctx,
		`INSERT INTO check_tables (check_id, table_id)
		 SELECT $1, unnest($2::text[])`,
		checkID, tableIDs,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// UnlinkTables ends the live relation between a check and its tables.
func (r *CheckRepo) UnlinkTables(ctx context.Context, checkID uuid.UUID) error {
	const op = "postgres.CheckRepo.UnlinkTables"

	if _, err := r.handle().Exec(ctx,
		`UPDATE check_tables SET active = false
		 WHERE check_id = $1 AND active`,
		checkID,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// UpdateFields applies the supplied check-level fields and bumps the revision
// in one conditional statement. The row only changes when its stored revision
// equals patch.ExpectedRevision and the check is still live.
//
// Returns:
//   - *domain.Check: the check as committed, at ExpectedRevision+1.
//   - error: repository.ErrRevisionConflict if the stored revision differs.
//   - error: repository.ErrCheckClosed if the check is closed or voided.
//   - error: repository.ErrNotFound if the check does not exist.
func (r *CheckRepo) UpdateFields(ctx context.Context, id uuid.UUID, patch domain.CheckPatch) (*domain.Check, error) {
	const op = "postgres.CheckRepo.UpdateFields"

	db := r.handle()

	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	c, err := scanCheck(db.QueryRow(ctx,
		`UPDATE checks SET
		     guest_names    = COALESCE($3::text[], guest_names),
		     current_course = COALESCE($4::text, current_course),
		     receipt_note   = CASE WHEN $5::boolean THEN NULLIF($6::text, '') ELSE receipt_note END,
		     status         = COALESCE($7::text, status),
		     closed_at      = CASE WHEN COALESCE($7::text, status) IN ('closed', 'voided')
		                           THEN now() ELSE closed_at END,
		     revision       = revision + 1,
		     updated_at     = now()
		 WHERE id = $1 AND revision = $2 AND status IN ('open', 'active')
		 RETURNING `+checkColumns,
		id,
		patch.ExpectedRevision,
		patch.GuestNames,
		patch.CurrentCourse,
		patch.ReceiptNote != nil,
		patch.ReceiptNote,
		status,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s:%w", op, classifyMiss(ctx, db, id))
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return c, nil
}

// BumpRevision advances the revision of a live check by one, taking the row
// lock that serializes every writer of the check for the rest of the
// transaction. When expected is non-nil the bump is conditional on it.
//
// Returns:
//   - error: repository.ErrRevisionConflict if expected does not match.
//   - error: repository.ErrCheckClosed if the check is closed or voided.
//   - error: repository.ErrNotFound if the check does not exist.
func (r *CheckRepo) BumpRevision(ctx context.Context, id uuid.UUID, expected *int64) (*domain.Check, error) {
	const op = "postgres.CheckRepo.BumpRevision"

	db := r.handle()

	c, err := scanCheck(db.QueryRow(ctx,
		`UPDATE checks SET revision = revision + 1, updated_at = now()
		 WHERE id = $1
		   AND status IN ('open', 'active')
		   AND ($2::bigint IS NULL OR revision = $2::bigint)
		 RETURNING `+checkColumns,
		id, expected,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s:%w", op, classifyMiss(ctx, db, id))
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return c, nil
}

// ApplyTotals stores recomputed money fields and the derived status. It does
// not touch the revision; callers bump it once per operation.
func (r *CheckRepo) ApplyTotals(
	ctx context.Context,
	id uuid.UUID,
	t domain.Totals,
	status domain.CheckStatus,
) (*domain.Check, error) {
	const op = "postgres.CheckRepo.ApplyTotals"

	c, err := scanCheck(r.handle().QueryRow(ctx,
		`UPDATE checks SET
		     subtotal_cents   = $2,
		     comp_total_cents = $3,
		     tax_cents        = $4,
		     total_cents      = $5,
		     status           = $6,
		     updated_at       = now()
		 WHERE id = $1
		 RETURNING `+checkColumns,
		id, int64(t.Subtotal), int64(t.CompTotal), int64(t.Tax), int64(t.Total), string(status),
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return c, nil
}

// classifyMiss explains why a conditional check update matched no row.
func classifyMiss(ctx context.Context, db DB, id uuid.UUID) error {
	var status string
	if err := db.QueryRow(ctx,
		`SELECT status FROM checks WHERE id = $1`,
		id,
	).Scan(&status); err != nil {
		return translateDBErr(err)
	}

	if domain.CheckStatus(status).Terminal() {
		return repository.ErrCheckClosed
	}

	return repository.ErrRevisionConflict
}

func scanCheck(row pgx.Row) (*domain.Check, error) {
	var (
		c                          domain.Check
		status                     string
		subtotal, comp, tax, total int64
	)

	if err := row.Scan(
		&c.ID,
		&c.TableIDs,
		&status,
		&c.GuestNames,
		&c.CurrentCourse,
		&c.ReceiptNote,
		&subtotal,
		&comp,
		&tax,
		&total,
		&c.Revision,
		&c.OpenedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ClosedAt,
	); err != nil {
		return nil, err
	}

	c.Status = domain.CheckStatus(status)
	c.Totals = domain.Totals{
		Subtotal:  domain.Cents(subtotal),
		CompTotal: domain.Cents(comp),
		Tax:       domain.Cents(tax),
		Total:     domain.Cents(total),
	}

	return &c, nil
}
