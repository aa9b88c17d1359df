package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/tabgo/internal/domain"
)

const tableColumns = `id, label, zone, seats, combinable, status, updated_at`

type TableRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TableRepo) With(db DB) *TableRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TableRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// List returns every table ordered by zone and id.
func (r *TableRepo) List(ctx context.Context) ([]domain.Table, error) {
	const op = "postgres.TableRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+tableColumns+`
		 FROM dining_tables
		 ORDER BY zone, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// GetForUpdate loads a table and locks its row.
//
// Returns:
//   - error: repository.ErrNotFound if the table does not exist.
func (r *TableRepo) GetForUpdate(ctx context.Context, id string) (*domain.Table, error) {
	const op = "postgres.TableRepo.GetForUpdate"

	t, err := scanTable(r.handle().QueryRow(ctx,
		`SELECT `+tableColumns+`
		 FROM dining_tables WHERE id = $1
		 FOR UPDATE`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return t, nil
}

// SetStatus overwrites the status of one table.
func (r *TableRepo) SetStatus(ctx context.Context, id string, status domain.TableStatus) (*domain.Table, error) {
	const op = "postgres.TableRepo.SetStatus"

	t, err := scanTable(r.handle().QueryRow(ctx,
		`UPDATE dining_tables SET status = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+tableColumns,
		id, string(status),
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return t, nil
}

// Sync re-derives the status of the given tables from the committed line set:
// a table with at least one line on a live check leaves "open" for
// "ordering"; a table with none returns to "open". Only changed tables are
// returned.
func (r *TableRepo) Sync(ctx context.Context, ids []string) ([]domain.TableTransition, error) {
	const op = "postgres.TableRepo.Sync"

	rows, err := r.handle().Query(ctx,
		`WITH desired AS (
		     SELECT t.id,
		            CASE
		                WHEN EXISTS (
		                    SELECT 1
		                    FROM check_lines l
		                    JOIN check_tables ct
		                      ON ct.check_id = l.check_id
		                     AND ct.table_id = l.table_id
		                     AND ct.active
		                    WHERE l.table_id = t.id)
		                THEN CASE WHEN t.status = 'open' THEN 'ordering' ELSE t.status END
		                ELSE 'open'
		            END AS status
		     FROM dining_tables t
		     WHERE t.id = ANY($1::text[])
		 )
		 UPDATE dining_tables t
		 SET status = d.status, updated_at = now()
		 FROM desired d
		 WHERE t.id = d.id AND t.status <> d.status
		 RETURNING t.id, t.status`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.TableTransition
	for rows.Next() {
		var (
			id     string
			status string
		)
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, domain.TableTransition{TableID: id, Status: domain.TableStatus(status)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// Upsert creates or updates table definitions. Status is never overwritten.
func (r *TableRepo) Upsert(ctx context.Context, tables []domain.Table) error {
	const op = "postgres.TableRepo.Upsert"

	batch := &pgx.Batch{}
	for _, t := range tables {
		batch.Queue(
			`INSERT INTO dining_tables (id, label, zone, seats, combinable)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET
			     label = EXCLUDED.label,
			     zone = EXCLUDED.zone,
			     seats = EXCLUDED.seats,
			     combinable = EXCLUDED.combinable,
			     updated_at = now()`,
			t.ID, t.Label, t.Zone, t.Seats, t.Combinable,
		)
	}

	if err := r.handle().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func scanTable(row pgx.Row) (*domain.Table, error) {
	var (
		t      domain.Table
		status string
	)

	if err := row.Scan(&t.ID, &t.Label, &t.Zone, &t.Seats, &t.Combinable, &status, &t.UpdatedAt); err != nil {
		return nil, err
	}

	t.Status = domain.TableStatus(status)

	return &t, nil
}
