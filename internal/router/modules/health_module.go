package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ecommerce-auth/internal/interface/http"
)

// HealthModule serves the API index on the group root and /health on the
// engine root, outside the API-wide rate limiter.
type HealthModule struct {
	Handler *handlers.HealthHandler
	Engine  *gin.Engine
}

func NewHealthModule(h *handlers.HealthHandler, engine *gin.Engine) *HealthModule {
	return &HealthModule{Handler: h, Engine: engine}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	if m.Engine != nil {
		m.Engine.GET("/health", m.Handler.Health)
	}
	rg.GET("", m.Handler.Info)
}

func (m *HealthModule) Name() string { return "health" }
