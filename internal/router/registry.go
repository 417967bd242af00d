package router

import "github.com/gin-gonic/gin"

// apiPrefix is the mount point for every feature module.
const apiPrefix = "/api"

// Registry collects feature modules and mounts their routes under /api.
// Modules register in the order they were added.
type Registry struct {
	Engine  *gin.Engine
	API     *gin.RouterGroup
	modules []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group(apiPrefix)}
}

// Add queues a module for registration.
func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// RegisterAll mounts every queued module. Called once at startup after the
// container is filled.
func (r *Registry) RegisterAll() {
	for _, m := range r.modules {
		m.Register(r.API)
	}
}
