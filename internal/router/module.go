package router

import "github.com/gin-gonic/gin"

// Module is a feature that mounts its routes on the versioned API group.
// Name identifies it in startup logs.
type Module interface {
	Name() string
	Register(rg *gin.RouterGroup)
}
