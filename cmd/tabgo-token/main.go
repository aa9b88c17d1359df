// Command tabgo-token mints a staff session token signed with JWT_SECRET.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kirinyoku/tabgo/internal/auth"
	"github.com/kirinyoku/tabgo/internal/config"
	"github.com/kirinyoku/tabgo/internal/domain"
	"github.com/kirinyoku/tabgo/internal/logger"
)

func main() {
	email := pflag.String("email", "", "staff email")
	role := pflag.String("role", string(domain.RoleServer), "server, bartender, manager or admin")
	pflag.Parse()

	log := logger.New(logger.Config{Level: "info", Format: "console"})
	defer func() { _ = log.Sync() }()

	staff := domain.Staff{Email: *email, Role: domain.Role(*role)}
	if staff.Email == "" || !staff.Role.Valid() {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	tokens := auth.NewTokenManager(auth.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL,
	})

	raw, exp, err := tokens.Issue(staff)
	if err != nil {
		log.Fatal("failed to issue token", zap.Error(err))
	}

	log.Info("token issued", zap.String("email", staff.Email), zap.Time("expires", exp))
	fmt.Println(raw)
}
