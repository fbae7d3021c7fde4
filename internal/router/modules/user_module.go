package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ecommerce-auth/internal/domain/entity"
	handlers "github.com/oksasatya/go-ecommerce-auth/internal/interface/http"
	"github.com/oksasatya/go-ecommerce-auth/internal/interface/middleware"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
)

// UserModule serves /users. Every route requires a bearer token; search is admin only.
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
	Redis   *redis.Client
	Logger  logrus.FieldLogger
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager, rdb *redis.Client, logger logrus.FieldLogger) *UserModule {
	return &UserModule{Handler: h, JWT: jwt, Redis: rdb, Logger: logger}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(
		middleware.Authenticate(m.JWT),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil, m.Logger),
	)
	{
		users.PUT("/me", m.Handler.UpdateProfile)
		users.POST("/me/avatar", middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByUserID(), nil, m.Logger), m.Handler.UploadAvatar)
		users.POST("/me/addresses", m.Handler.AddAddress)
		users.PUT("/me/addresses/:addressId", m.Handler.UpdateAddress)
		users.DELETE("/me/addresses/:addressId", m.Handler.RemoveAddress)
		users.GET("/search", middleware.Authorize(entity.RoleAdmin.String()), m.Handler.Search)
	}
}

func (m *UserModule) Name() string { return "users" }
