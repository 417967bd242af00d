package router

import "github.com/gin-gonic/gin"

// Module is one feature area (accounts, analyses) that mounts its own routes
// and per-route middleware on the shared API group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
