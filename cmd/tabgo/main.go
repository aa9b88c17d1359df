package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	_ "github.com/kirinyoku/tabgo/docs"
	"github.com/kirinyoku/tabgo/internal/app"
	"github.com/kirinyoku/tabgo/internal/config"
	"github.com/kirinyoku/tabgo/internal/logger"
)

// @title TabGo API
// @version 1.0
// @description Order and billing checks for restaurant terminals.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey StaffBearer
// @in header
// @name Authorization
func main() {
	cfg, err := config.New()
	if err != nil {
		zap.NewExample().Error("failed to load config", zap.Error(err))
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to create application", zap.Error(err))
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error("application finished with error", zap.Error(err))
		os.Exit(1)
	}
}
