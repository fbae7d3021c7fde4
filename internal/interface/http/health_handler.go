package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ecommerce-auth/config"
	"github.com/oksasatya/go-ecommerce-auth/pkg/response"
)

const (
	APIName    = "Yard Sale API"
	APIVersion = "1.0.0"
)

type HealthHandler struct {
	Config *config.Config
	now    func() time.Time
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{Config: cfg, now: time.Now}
}

type healthResponse struct {
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
	Version     string    `json:"version"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	response.JSON(c, http.StatusOK, healthResponse{
		Status:      "ok",
		Message:     "Server is running",
		Timestamp:   h.now().UTC(),
		Environment: h.Config.Env,
		Version:     APIVersion,
	})
}

// Info lists the API's top-level resources. Products, orders and categories
// are served by other services.
func (h *HealthHandler) Info(c *gin.Context) {
	base := "/api/" + h.Config.APIVersion
	response.JSON(c, http.StatusOK, gin.H{
		"message": APIName + " " + h.Config.APIVersion,
		"version": APIVersion,
		"endpoints": gin.H{
			"health":     "/health",
			"auth":       base + "/auth",
			"users":      base + "/users",
			"products":   base + "/products",
			"orders":     base + "/orders",
			"categories": base + "/categories",
		},
	})
}
