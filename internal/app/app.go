package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/tabgo/internal/auth"
	"github.com/kirinyoku/tabgo/internal/config"
	"github.com/kirinyoku/tabgo/internal/events"
	"github.com/kirinyoku/tabgo/internal/metrics"
	"github.com/kirinyoku/tabgo/internal/postgres"
	"github.com/kirinyoku/tabgo/internal/rabbitmq"
	redisx "github.com/kirinyoku/tabgo/internal/redis"
	postgresrepo "github.com/kirinyoku/tabgo/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tabgo/internal/repository/redis"
	"github.com/kirinyoku/tabgo/internal/service"
	"github.com/kirinyoku/tabgo/internal/service/checks"
	"github.com/kirinyoku/tabgo/internal/service/ledger"
	httpgin "github.com/kirinyoku/tabgo/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	httpServer *http.Server

	pool   *pgxpool.Pool
	rdb    *goredis.Client
	broker *rabbitmq.Client
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pgxPool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: cfg.Postgres.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redisx.New(ctx, redisx.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, pool: pgxPool, rdb: rdb}

	// settled-check events are optional
	var settlements events.SettlementPublisher
	if cfg.RabbitMQ.URL != "" {
		broker, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize rabbitmq: %w", err)
		}
		a.broker = broker
		settlements = broker
	} else {
		logger.Warn("RABBITMQ_URL not set, settled checks will not be published")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	feed := redisx.NewCheckFeed(rdb)
	devices := redisrepo.NewDeviceRegistry(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "mut", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)

	dispatcher := events.NewDispatcher(cache, feed, settlements, logger)

	// Initialize services
	services := service.NewServices(service.Deps{
		Store:      store,
		Cache:      cache,
		Devices:    devices,
		Dispatcher: dispatcher,
		Metrics:    m,
	}, service.Config{
		Checks: checks.Config{DefaultCourse: cfg.Billing.DefaultCourse},
		Ledger: ledger.Config{TaxRate: cfg.Billing.TaxRate},
	})

	tokens := auth.NewTokenManager(auth.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL,
	})

	// Initialize Gin router
	router := httpgin.NewRouter(httpgin.Deps{
		Checks:   services.Checks,
		Ledger:   services.Ledger,
		Tables:   services.Tables,
		Menu:     services.Menu,
		Admin:    services.Admin,
		Tokens:   tokens,
		Devices:  devices,
		Limiter:  limiter,
		Idem:     idempotencyStore,
		Feed:     feed,
		Metrics:  m,
		Gatherer: reg,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening",
			zap.String("host", a.cfg.Server.Host),
			zap.Int("port", a.cfg.Server.Port))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	if a.broker != nil {
		a.broker.Close()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
