package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	handlers "github.com/oksasatya/go-ecommerce-auth/internal/interface/http"
	"github.com/oksasatya/go-ecommerce-auth/internal/interface/middleware"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
)

// AuthModule serves /auth. Credential endpoints get tighter per-IP limits than
// the API-wide limiter.
type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
	Redis   *redis.Client
	Logger  logrus.FieldLogger
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager, rdb *redis.Client, logger logrus.FieldLogger) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt, Redis: rdb, Logger: logger}
}

func (m *AuthModule) limit(max int, window time.Duration, key middleware.KeyFunc) gin.HandlerFunc {
	return middleware.RateLimit(m.Redis, max, window, key, nil, m.Logger)
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	registerLimiter := m.limit(5, time.Minute, middleware.KeyByIPAndPath())
	loginLimiter := m.limit(10, time.Minute, middleware.KeyByIPAndPath())
	refreshLimiter := m.limit(60, time.Minute, middleware.KeyByIPAndPath())
	forgotLimiter := m.limit(5, time.Minute, middleware.KeyByIPAndPath())
	resetLimiter := m.limit(30, time.Minute, middleware.KeyByIPAndPath())

	auth := rg.Group("/auth")
	auth.POST("/register", registerLimiter, m.Handler.Register)
	auth.POST("/login", loginLimiter, m.Handler.Login)
	auth.POST("/refresh", refreshLimiter, m.Handler.Refresh)
	auth.POST("/logout", refreshLimiter, m.Handler.Logout)
	auth.POST("/forgot-password", forgotLimiter, m.Handler.ForgotPassword)
	auth.POST("/reset-password", resetLimiter, m.Handler.ResetPassword)

	protected := auth.Group("")
	protected.Use(middleware.Authenticate(m.JWT), m.limit(120, time.Minute, middleware.KeyByUserID()))
	{
		protected.GET("/me", m.Handler.Me)
		protected.POST("/change-password", m.limit(5, time.Minute, middleware.KeyByUserID()), m.Handler.ChangePassword)
	}
}

func (m *AuthModule) Name() string { return "auth" }
