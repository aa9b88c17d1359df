package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/tabgo/internal/domain"
)

type MenuRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *MenuRepo) With(db DB) *MenuRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *MenuRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Get resolves a menu item by id.
//
// Returns:
//   - error: repository.ErrNotFound if the item does not exist.
func (r *MenuRepo) Get(ctx context.Context, id string) (*domain.MenuItem, error) {
	const op = "postgres.MenuRepo.Get"

	var (
		m     domain.MenuItem
		price int64
	)

	err := r.handle().QueryRow(ctx,
		`SELECT id, name, price_cents, modifier_key, modifiers, available
		 FROM menu_items WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Name, &price, &m.ModifierKey, &m.Modifiers, &m.Available)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	m.Price = domain.Cents(price)

	return &m, nil
}

// Upsert creates or replaces menu items.
func (r *MenuRepo) Upsert(ctx context.Context, items []domain.MenuItem) error {
	const op = "postgres.MenuRepo.Upsert"

	batch := &pgx.Batch{}
	for _, m := range items {
		modifiers := m.Modifiers
		if modifiers == nil {
			modifiers = []string{}
		}
		batch.Queue(
			`INSERT INTO menu_items (id, name, price_cents, modifier_key, modifiers, available)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET
			     name = EXCLUDED.name,
			     price_cents = EXCLUDED.price_cents,
			     modifier_key = EXCLUDED.modifier_key,
			     modifiers = EXCLUDED.modifiers,
			     available = EXCLUDED.available,
			     updated_at = now()`,
			m.ID, m.Name, int64(m.Price), m.ModifierKey, modifiers, m.Available,
		)
	}

	if err := r.handle().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}
