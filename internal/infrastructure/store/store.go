package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-ecommerce-auth/config"
	"github.com/oksasatya/go-ecommerce-auth/internal/domain/repository"
	"github.com/oksasatya/go-ecommerce-auth/internal/infrastructure/memory"
	"github.com/oksasatya/go-ecommerce-auth/internal/infrastructure/mongodb"
	"github.com/oksasatya/go-ecommerce-auth/internal/infrastructure/postgres"
)

// Store is the credential store chosen by STORE_DRIVER plus the connection behind it.
type Store struct {
	Driver string
	Users  repository.UserRepository
	PG     *pgxpool.Pool
	Mongo  *mongo.Client
}

// Open connects the configured backend. Postgres schema migrations are the caller's job.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Store, error) {
	s := &Store{Driver: cfg.StoreDriver}
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.PG = pool
		s.Users = postgres.NewUserRepository(pool)
	case config.StoreMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.AppName)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		repo := mongodb.NewUserRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		s.Mongo = client
		s.Users = repo
	case config.StoreMemory:
		logger.Warn("using in-memory credential store; data is lost on restart")
		s.Users = memory.NewUserRepository()
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	logger.WithField("driver", s.Driver).Info("credential store ready")
	return s, nil
}

func (s *Store) Close(ctx context.Context) {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.Mongo != nil {
		_ = s.Mongo.Disconnect(ctx)
	}
}
