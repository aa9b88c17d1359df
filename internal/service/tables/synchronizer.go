package tables

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/tabgo/internal/domain"
	"github.com/kirinyoku/tabgo/internal/metrics"
	"github.com/kirinyoku/tabgo/internal/repository"
	postgresrepo "github.com/kirinyoku/tabgo/internal/repository/postgres"
)

// Synchronizer is the only writer of table status. It always runs inside the
// caller's transaction so the status commits with the line change that
// caused it.
type Synchronizer struct {
	store   *postgresrepo.Store
	metrics *metrics.Metrics
}

func NewSynchronizer(store *postgresrepo.Store, m *metrics.Metrics) *Synchronizer {
	return &Synchronizer{store: store, metrics: m}
}

// Sync re-derives open/ordering for ids from the line set visible to tx.
// Tables staff moved to served or paying keep that status while they still
// have lines.
func (s *Synchronizer) Sync(ctx context.Context, tx postgresrepo.DB, ids []string) ([]domain.TableTransition, error) {
	const op = "service.tables.Synchronizer.Sync"

	if len(ids) == 0 {
		return nil, nil
	}

	transitions, err := s.store.Tables().With(tx).Sync(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	for _, tr := range transitions {
		s.metrics.TableTransition(string(tr.Status))
	}

	return transitions, nil
}

// Transition applies a staff-driven status change (served, paying).
//
// Returns:
//   - error: tables.ErrTableNotFound if the table does not exist.
//   - error: tables.ErrInvalidTransition if the move is not allowed from the current status.
func (s *Synchronizer) Transition(
	ctx context.Context,
	tx postgresrepo.DB,
	id string,
	to domain.TableStatus,
) (*domain.Table, error) {
	const op = "service.tables.Synchronizer.Transition"

	repo := s.store.Tables().With(tx)

	current, err := repo.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTableNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !domain.CanStaffTransition(current.Status, to) {
		return nil, fmt.Errorf("%s:%w: %s -> %s", op, ErrInvalidTransition, current.Status, to)
	}

	if current.Status == to {
		return current, nil
	}

	updated, err := repo.SetStatus(ctx, id, to)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.metrics.TableTransition(string(to))

	return updated, nil
}
