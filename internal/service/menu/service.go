package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/tabgo/internal/domain"
	redisx "github.com/kirinyoku/tabgo/internal/redis"
	"github.com/kirinyoku/tabgo/internal/repository"
	postgresrepo "github.com/kirinyoku/tabgo/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tabgo/internal/repository/redis"
)

type Config struct {
	ItemTTL time.Duration
}

// Service is a read-only view of the menu catalog.
type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.ItemTTL <= 0 {
		cfg.ItemTTL = 5 * time.Minute
	}

	return &Service{store: store, cache: cache, cfg: cfg}
}

// Get resolves a menu item, preferring the cache.
//
// Returns:
//   - error: menu.ErrMenuItemNotFound if the item does not exist.
func (s *Service) Get(ctx context.Context, id string) (*domain.MenuItem, error) {
	const op = "service.menu.Get"

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("menuItemId", "is required"))
	}

	load := func(ctx context.Context) (domain.MenuItem, error) {
		m, err := s.store.Menu().Get(ctx, id)
		if err != nil {
			return domain.MenuItem{}, err
		}
		return *m, nil
	}

	var (
		item domain.MenuItem
		err  error
	)
	if s.cache != nil {
		item, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyMenuItem(id), s.cfg.ItemTTL, load)
	} else {
		item, err = load(ctx)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrMenuItemNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &item, nil
}
