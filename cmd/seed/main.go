package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ecommerce-auth/config"
	"github.com/oksasatya/go-ecommerce-auth/internal/domain/entity"
	"github.com/oksasatya/go-ecommerce-auth/internal/domain/repository"
	pginfra "github.com/oksasatya/go-ecommerce-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ecommerce-auth/internal/infrastructure/store"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
)

// seed creates an admin account, or promotes the existing account with that email.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	email := flag.String("email", getenvDefault("SEED_ADMIN_EMAIL", "admin@yardsale.dev"), "admin email")
	password := flag.String("password", getenvDefault("SEED_ADMIN_PASSWORD", "password123"), "admin password")
	name := flag.String("name", "Admin", "admin name")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := run(ctx, cfg, logger, admin{Email: *email, Password: *password, Name: *name})
	cancel()
	if err != nil {
		logger.WithError(err).Error("seed failed")
		os.Exit(1)
	}
}

type admin struct {
	Email    string
	Password string
	Name     string
}

// run opens the store and closes it on every path before returning.
func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger, a admin) error {
	if cfg.StoreDriver == config.StorePostgres {
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer st.Close(context.Background())

	return seedAdmin(ctx, st.Users, helpers.NewBcryptHasher(), logger, a)
}

func seedAdmin(ctx context.Context, users repository.UserRepository, hasher helpers.PasswordHasher, logger *logrus.Logger, a admin) error {
	u, err := users.GetByEmail(ctx, a.Email)
	switch {
	case err == nil:
		u.Role = entity.RoleAdmin
		u.IsActive = true
		if err := users.Update(ctx, u); err != nil {
			return fmt.Errorf("promote %s: %w", u.Email, err)
		}
		logger.WithField("user_id", u.ID).Info("existing user promoted to admin")
		return nil
	case errors.Is(err, repository.ErrNotFound):
		hash, err := hasher.Hash(a.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		u = entity.NewUser(a.Name, a.Email, hash)
		u.Role = entity.RoleAdmin
		u.EmailVerified = true
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		logger.WithField("user_id", u.ID).Infof("seeded admin %s", u.Email)
		return nil
	default:
		return fmt.Errorf("look up %s: %w", a.Email, err)
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
