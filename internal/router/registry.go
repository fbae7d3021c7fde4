package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Registry collects feature modules and mounts them under /api/<version>.
type Registry struct {
	Engine *gin.Engine
	API    *gin.RouterGroup
	Logger logrus.FieldLogger

	middlewares []gin.HandlerFunc
	modules     []Module
}

func NewRegistry(engine *gin.Engine, version string, logger logrus.FieldLogger) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api/" + version), Logger: logger}
}

// Use queues middleware for every API route. It takes effect in RegisterAll,
// ahead of all module routes.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

func (r *Registry) RegisterAll() {
	r.API.Use(r.middlewares...)
	for _, m := range r.modules {
		m.Register(r.API)
		if r.Logger != nil {
			r.Logger.WithField("module", m.Name()).Debug("module registered")
		}
	}
}
