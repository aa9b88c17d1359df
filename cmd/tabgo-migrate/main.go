// Command tabgo-migrate applies the embedded schema migrations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kirinyoku/tabgo/internal/config"
	"github.com/kirinyoku/tabgo/internal/logger"
	"github.com/kirinyoku/tabgo/internal/postgres"
)

func main() {
	dsn := pflag.String("dsn", "", "postgres DSN (defaults to the POSTGRES_* environment)")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: tabgo-migrate [--dsn DSN] up|down|version\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	log := logger.New(logger.Config{Level: "info", Format: "console"})
	defer func() { _ = log.Sync() }()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}

	if *dsn == "" {
		cfg, err := config.New()
		if err != nil {
			log.Fatal("failed to load config", zap.Error(err))
		}
		*dsn = cfg.Postgres.DSN()
	}

	m, err := postgres.NewMigrator(*dsn, log)
	if err != nil {
		log.Fatal("failed to open migrator", zap.Error(err))
	}
	defer func() { _ = m.Close() }()

	switch pflag.Arg(0) {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "version":
		var (
			v     uint
			dirty bool
		)
		v, dirty, err = m.Version()
		if err == nil {
			log.Info("schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		}
	default:
		pflag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
}
