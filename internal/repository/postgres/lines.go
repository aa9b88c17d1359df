package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/tabgo/internal/domain"
	"github.com/kirinyoku/tabgo/internal/repository"
)

const lineColumns = `id, check_id, table_id, menu_item_id, name, seat, price_cents, qty,
	modifier_key, modifiers, comp, split_mode, transfer_to, custom_split_note,
	created_at, updated_at`

type LineRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *LineRepo) With(db DB) *LineRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *LineRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Insert persists a new line. ID and timestamps are assigned here.
//
// Returns:
//   - error: repository.ErrNotFound if the check or table does not exist.
func (r *LineRepo) Insert(ctx context.Context, l domain.CheckLine) (*domain.CheckLine, error) {
	const op = "postgres.LineRepo.Insert"

	if l.Modifiers == nil {
		l.Modifiers = []string{}
	}

	out, err := scanLine(r.handle().QueryRow(ctx,
		`INSERT INTO check_lines (
		     id, check_id, table_id, menu_item_id, name, seat, price_cents, qty,
		     modifier_key, modifiers, comp, split_mode)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, 'none')
		 RETURNING `+lineColumns,
		uuid.New(),
		l.CheckID,
		l.TableID,
		l.MenuItemID,
		l.Name,
		l.Seat,
		int64(l.Price),
		l.Qty,
		l.ModifierKey,
		l.Modifiers,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// GetForUpdate loads a line of the given check and locks its row.
//
// Returns:
//   - error: repository.ErrNotFound if the line does not belong to the check.
func (r *LineRepo) GetForUpdate(ctx context.Context, checkID, lineID uuid.UUID) (*domain.CheckLine, error) {
	const op = "postgres.LineRepo.GetForUpdate"

	l, err := scanLine(r.handle().QueryRow(ctx,
		`SELECT `+lineColumns+`
		 FROM check_lines
		 WHERE id = $1 AND check_id = $2
		 FOR UPDATE`,
		lineID, checkID,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return l, nil
}

// Update writes the mutable fields of a line. Qty must already be >= 1.
func (r *LineRepo) Update(ctx context.Context, l domain.CheckLine) (*domain.CheckLine, error) {
	const op = "postgres.LineRepo.Update"

	if l.Modifiers == nil {
		l.Modifiers = []string{}
	}

	out, err := scanLine(r.handle().QueryRow(ctx,
		`UPDATE check_lines SET
		     qty               = $3,
		     comp              = $4,
		     split_mode        = $5,
		     transfer_to       = $6,
		     custom_split_note = $7,
		     modifiers         = $8,
		     updated_at        = now()
		 WHERE id = $1 AND check_id = $2
		 RETURNING `+lineColumns,
		l.ID,
		l.CheckID,
		l.Qty,
		l.Comp,
		string(l.SplitMode),
		l.TransferTo,
		l.CustomSplitNote,
		l.Modifiers,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// Delete removes one line of a check.
//
// Returns:
//   - error: repository.ErrNotFound if the line does not belong to the check.
func (r *LineRepo) Delete(ctx context.Context, checkID, lineID uuid.UUID) error {
	const op = "postgres.LineRepo.Delete"

	tag, err := r.handle().Exec(ctx,
		`DELETE FROM check_lines WHERE id = $1 AND check_id = $2`,
		lineID, checkID,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// DeleteByCheck removes every line of a check and returns how many went.
func (r *LineRepo) DeleteByCheck(ctx context.Context, checkID uuid.UUID) (int64, error) {
	const op = "postgres.LineRepo.DeleteByCheck"

	tag, err := r.handle().Exec(ctx,
		`DELETE FROM check_lines WHERE check_id = $1`,
		checkID,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// ListByCheck returns the current lines of a check in insertion order.
func (r *LineRepo) ListByCheck(ctx context.Context, checkID uuid.UUID) ([]domain.CheckLine, error) {
	const op = "postgres.LineRepo.ListByCheck"

	rows, err := r.handle().Query(ctx,
		`SELECT `+lineColumns+`
		 FROM check_lines
		 WHERE check_id = $1
		 ORDER BY created_at, id`,
		checkID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.CheckLine{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func scanLine(row pgx.Row) (*domain.CheckLine, error) {
	var (
		l         domain.CheckLine
		price     int64
		splitMode string
	)

	if err := row.Scan(
		&l.ID,
		&l.CheckID,
		&l.TableID,
		&l.MenuItemID,
		&l.Name,
		&l.Seat,
		&price,
		&l.Qty,
		&l.ModifierKey,
		&l.Modifiers,
		&l.Comp,
		&splitMode,
		&l.TransferTo,
		&l.CustomSplitNote,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}

	l.Price = domain.Cents(price)
	l.SplitMode = domain.SplitMode(splitMode)

	return &l, nil
}
