package router

import (
	"github.com/oksasatya/go-ecommerce-auth/internal/application"
	"github.com/oksasatya/go-ecommerce-auth/internal/container"
	"github.com/oksasatya/go-ecommerce-auth/internal/infrastructure/cache"
	handlers "github.com/oksasatya/go-ecommerce-auth/internal/interface/http"
	"github.com/oksasatya/go-ecommerce-auth/internal/router/modules"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
)

type AuthModuleDeps struct {
	AuthService *application.AuthService
	UserService *application.UserService
	AuthHandler *handlers.AuthHandler
	UserHandler *handlers.UserHandler
}

func buildAuthDeps() AuthModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	repo := container.GetUserRepository()

	userService := application.NewUserService(
		repo,
		container.GetGCS(),
		cfg.GCSBucket,
		container.GetES(),
		cfg.ESUsersIndex,
		logger,
	)

	authService := application.NewAuthService(
		repo,
		helpers.NewBcryptHasher(),
		container.GetJWT(),
		application.NewResetTokenManager(repo, cfg.ResetTokenTTL),
		cfg,
		logger,
	)
	if rdb := container.GetRedis(); rdb != nil {
		authService.Denylist = cache.NewTokenDenylist(rdb)
	}
	if pub := container.GetRabbitPub(); pub != nil {
		authService.Events = pub
	}
	if container.GetES() != nil {
		authService.Indexer = userService
	}

	return AuthModuleDeps{
		AuthService: authService,
		UserService: userService,
		AuthHandler: handlers.NewAuthHandler(authService, cfg, logger),
		UserHandler: handlers.NewUserHandler(userService, logger),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	rdb := container.GetRedis()
	jwt := container.GetJWT()

	deps := buildAuthDeps()
	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(cfg), r.Engine))
	r.Add(modules.NewAuthModule(deps.AuthHandler, jwt, rdb, logger))
	r.Add(modules.NewUserModule(deps.UserHandler, jwt, rdb, logger))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb, logger))
	}
}
