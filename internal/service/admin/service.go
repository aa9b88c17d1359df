package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirinyoku/tabgo/internal/domain"
	"github.com/kirinyoku/tabgo/internal/events"
	"github.com/kirinyoku/tabgo/internal/repository"
	postgresrepo "github.com/kirinyoku/tabgo/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tabgo/internal/repository/redis"
	"github.com/kirinyoku/tabgo/internal/uow"
)

type Service struct {
	store   *postgresrepo.Store
	cache   *redisrepo.Cache
	devices *redisrepo.DeviceRegistry
	events  *events.Dispatcher
	uow     *uow.UoW
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	devices *redisrepo.DeviceRegistry,
	dispatcher *events.Dispatcher,
) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		devices: devices,
		events:  dispatcher,
		uow:     uow.NewUoW(store),
	}
}

// UpsertTables creates or updates table definitions. Live status is never
// touched; it stays owned by the synchronizer.
//
// Parameters:
//   - ctx: request-scoped context.
//   - tables: definitions to save; ids are unique within the batch.
//
// Returns:
//   - error: domain.ValidationError for bad definitions.
//   - error: admin.ErrTablesConflict if the batch could not be written.
func (s *Service) UpsertTables(ctx context.Context, tables []domain.Table) error {
	const op = "service.admin.UpsertTables"

	if len(tables) == 0 {
		return fmt.Errorf("%s:%w", op, domain.Invalid("tables", "at least one table is required"))
	}

	seen := make(map[string]struct{}, len(tables))
	for i := range tables {
		t := &tables[i]
		t.ID = strings.TrimSpace(t.ID)
		t.Label = strings.TrimSpace(t.Label)
		t.Zone = strings.TrimSpace(t.Zone)

		if err := domain.ValidateTableID(t.ID); err != nil {
			return fmt.Errorf("%s:%w", op, domain.Invalid("id", err.Error()))
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%s:%w", op, domain.Invalid("id", "duplicate "+t.ID))
		}
		seen[t.ID] = struct{}{}

		if t.Label == "" {
			t.Label = t.ID
		}
		if t.Seats <= 0 {
			return fmt.Errorf("%s:%w", op, domain.Invalid("seats", "must be positive"))
		}
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Tables().With(tx).Upsert(ctx, tables); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrTablesConflict
			}
			return err
		}

		after(s.events.TablesChanged)

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// UpsertMenuItems creates or replaces catalog entries and drops their
// cached copies.
//
// Returns:
//   - error: domain.ValidationError for bad items.
//   - error: admin.ErrMenuItemsConflict if the batch could not be written.
func (s *Service) UpsertMenuItems(ctx context.Context, items []domain.MenuItem) error {
	const op = "service.admin.UpsertMenuItems"

	if len(items) == 0 {
		return fmt.Errorf("%s:%w", op, domain.Invalid("items", "at least one item is required"))
	}

	ids := make([]string, 0, len(items))
	for i := range items {
		m := &items[i]
		m.ID = strings.TrimSpace(m.ID)
		m.Name = strings.TrimSpace(m.Name)

		if m.ID == "" {
			return fmt.Errorf("%s:%w", op, domain.Invalid("id", "is required"))
		}
		if m.Name == "" {
			return fmt.Errorf("%s:%w", op, domain.Invalid("name", "is required"))
		}
		if m.Price <= 0 {
			return fmt.Errorf("%s:%w", op, domain.Invalid("price", "must be positive"))
		}
		if m.Price > domain.MaxUnitPrice {
			return fmt.Errorf("%s:%w", op, domain.Invalid("price", "must not exceed "+domain.MaxUnitPrice.String()))
		}

		ids = append(ids, m.ID)
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Menu().With(tx).Upsert(ctx, items); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrMenuItemsConflict
			}
			return err
		}

		after(func(ctx context.Context) {
			if s.cache != nil {
				_ = s.cache.InvalidateMenuItems(ctx, ids...)
			}
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// TrustDevices admits terminals to the mutating API.
func (s *Service) TrustDevices(ctx context.Context, deviceIDs []string) error {
	const op = "service.admin.TrustDevices"

	ids := make([]string, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		return fmt.Errorf("%s:%w", op, domain.Invalid("deviceIds", "at least one device is required"))
	}

	if s.devices == nil {
		return fmt.Errorf("%s: device registry is not configured", op)
	}

	if err := s.devices.Trust(ctx, ids...); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
