package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"uikit-analytics/internal/config"
	"uikit-analytics/internal/rbac"
	"uikit-analytics/internal/users"
	"uikit-analytics/pkg/logger"
	"uikit-analytics/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Seeds an initial admin principal so export endpoints are usable out of the
// box. Safe to run repeatedly: an existing email is left untouched.
func main() {
	name := flag.String("name", "Admin", "admin display name")
	email := flag.String("email", "admin@example.com", "admin email")
	password := flag.String("password", "", "admin password (required)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if *password == "" {
		log.Error("password flag is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := users.NewService(users.NewPostgresRepo(db))
	u, err := svc.Register(ctx, users.RegisterRequest{
		Name:     *name,
		Email:    *email,
		Password: *password,
		Role:     rbac.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			log.Info("admin already exists", "email", *email)
			return
		}
		log.Error("seed failed", "err", err)
		os.Exit(1)
	}
	log.Info("admin created", "id", u.ID, "email", u.Email)
}
