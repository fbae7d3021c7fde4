package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ecommerce-auth/config"
	"github.com/oksasatya/go-ecommerce-auth/internal/container"
	pginfra "github.com/oksasatya/go-ecommerce-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ecommerce-auth/internal/infrastructure/store"
	"github.com/oksasatya/go-ecommerce-auth/internal/interface/middleware"
	"github.com/oksasatya/go-ecommerce-auth/internal/router"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
	"github.com/oksasatya/go-ecommerce-auth/pkg/response"
	"github.com/oksasatya/go-ecommerce-auth/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	response.Setup(logger, cfg.IsProduction())
	validation.Init()

	ctx := context.Background()

	if cfg.StoreDriver == config.StorePostgres {
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			logger.Fatalf("migration failed: %v", err)
		}
	}
	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to open credential store: %v", err)
	}
	defer st.Close(context.Background())

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetUserRepository(st.Users)
	container.SetJWT(helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL))

	closeOptional := initOptional(ctx, cfg, logger)
	defer closeOptional()

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(), middleware.RealIP(), middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(logger))
	}
	r.NoRoute(response.RouteNotFound)

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r, cfg.APIVersion, logger)
	reg.Use(middleware.RateLimit(container.GetRedis(), cfg.RateLimitMax, cfg.RateLimitWindow, middleware.KeyByIP(), middleware.AllowPrivateIP(), logger))
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env, "store": cfg.StoreDriver}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// initOptional connects Redis, RabbitMQ, Elasticsearch and GCS when configured.
// A backend that cannot be reached is logged and left disabled.
func initOptional(ctx context.Context, cfg *config.Config, logger *logrus.Logger) func() {
	var closers []func()

	if cfg.RedisAddr != "" {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			logger.WithError(err).Warn("redis unavailable; rate limiting and refresh revocation disabled")
			_ = rdb.Close()
		} else {
			container.SetRedis(rdb)
			closers = append(closers, func() { _ = rdb.Close() })
		}
	}

	if cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEventsQueue, cfg.AppName)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; auth events disabled")
		} else {
			container.SetRabbitPub(pub)
			closers = append(closers, pub.Close)
		}
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch unavailable; user search disabled")
		} else {
			container.SetES(es)
		}
	}

	if cfg.GCSBucket != "" {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Warn("gcs unavailable; avatar upload disabled")
		} else {
			container.SetGCS(gcs)
			closers = append(closers, func() { _ = gcs.Close() })
		}
	}

	return func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}
