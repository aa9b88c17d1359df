package tables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/tabgo/internal/domain"
	"github.com/kirinyoku/tabgo/internal/events"
	redisx "github.com/kirinyoku/tabgo/internal/redis"
	"github.com/kirinyoku/tabgo/internal/repository"
	postgresrepo "github.com/kirinyoku/tabgo/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tabgo/internal/repository/redis"
	"github.com/kirinyoku/tabgo/internal/uow"
)

type Config struct {
	BoardTTL time.Duration
}

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	sync   *Synchronizer
	events *events.Dispatcher
	uow    *uow.UoW
	cfg    Config
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	sync *Synchronizer,
	dispatcher *events.Dispatcher,
	cfg Config,
) *Service {
	if cfg.BoardTTL <= 0 {
		cfg.BoardTTL = 5 * time.Second
	}

	return &Service{
		store:  store,
		cache:  cache,
		sync:   sync,
		events: dispatcher,
		uow:    uow.NewUoW(store),
		cfg:    cfg,
	}
}

// Board lists every table with its live status.
func (s *Service) Board(ctx context.Context) ([]domain.Table, error) {
	const op = "service.tables.Board"

	load := func(ctx context.Context) ([]domain.Table, error) {
		return s.store.Tables().List(ctx)
	}

	var (
		board []domain.Table
		err   error
	)
	if s.cache != nil {
		board, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyTableBoard(), s.cfg.BoardTTL, load)
	} else {
		board, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return board, nil
}

// SetStatus moves a table to served or paying on staff request.
//
// Returns:
//   - error: domain.ValidationError if status is not served or paying.
//   - error: tables.ErrTableNotFound if the table does not exist.
//   - error: tables.ErrInvalidTransition if the move is not allowed from the current status.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.TableStatus) (*domain.Table, error) {
	const op = "service.tables.SetStatus"

	if status != domain.TableServed && status != domain.TablePaying {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status", "must be served or paying"))
	}

	var table *domain.Table

	err := s.uow.DoWithOpts(ctx, uow.ReadCommitted, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		t, err := s.sync.Transition(ctx, tx, id, status)
		if err != nil {
			return err
		}

		table = t

		after(s.events.TablesChanged)

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrConflict)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return table, nil
}
