package service

import (
	"github.com/kirinyoku/tabgo/internal/events"
	"github.com/kirinyoku/tabgo/internal/metrics"
	postgres "github.com/kirinyoku/tabgo/internal/repository/postgres"
	redis "github.com/kirinyoku/tabgo/internal/repository/redis"
	"github.com/kirinyoku/tabgo/internal/service/admin"
	"github.com/kirinyoku/tabgo/internal/service/checks"
	"github.com/kirinyoku/tabgo/internal/service/ledger"
	"github.com/kirinyoku/tabgo/internal/service/menu"
	"github.com/kirinyoku/tabgo/internal/service/tables"
)

type Services struct {
	Tables *tables.Service
	Checks *checks.Service
	Ledger *ledger.Service
	Menu   *menu.Service
	Admin  *admin.Service
}

type Config struct {
	Tables tables.Config
	Checks checks.Config
	Ledger ledger.Config
	Menu   menu.Config
}

// Deps are the collaborators shared by the services. Cache, Devices,
// Dispatcher and Metrics may be nil.
type Deps struct {
	Store      *postgres.Store
	Cache      *redis.Cache
	Devices    *redis.DeviceRegistry
	Dispatcher *events.Dispatcher
	Metrics    *metrics.Metrics
}

func NewServices(deps Deps, cfg Config) *Services {
	sync := tables.NewSynchronizer(deps.Store, deps.Metrics)
	catalog := menu.New(deps.Store, deps.Cache, cfg.Menu)

	return &Services{
		Tables: tables.New(deps.Store, deps.Cache, sync, deps.Dispatcher, cfg.Tables),
		Checks: checks.New(deps.Store, sync, deps.Dispatcher, deps.Metrics, cfg.Checks),
		Ledger: ledger.New(deps.Store, catalog, sync, deps.Dispatcher, deps.Metrics, cfg.Ledger),
		Menu:   catalog,
		Admin:  admin.New(deps.Store, deps.Cache, deps.Devices, deps.Dispatcher),
	}
}
