package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ecommerce-auth/internal/interface/middleware"
)

type DebugModule struct {
	Redis  *redis.Client
	Logger logrus.FieldLogger
}

func NewDebugModule(rdb *redis.Client, logger logrus.FieldLogger) *DebugModule {
	return &DebugModule{Redis: rdb, Logger: logger}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// expvar metrics, rate-limited per IP
	rl := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByIP(), nil, m.Logger)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}

func (m *DebugModule) Name() string { return "debug" }
