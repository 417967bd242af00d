package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/areebaatariq/DiabeVision/internal/container"
	handlers "github.com/areebaatariq/DiabeVision/internal/interface/http"
	"github.com/areebaatariq/DiabeVision/internal/interface/middleware"
	"github.com/areebaatariq/DiabeVision/pkg/helpers"
)

// AnalysisModule wires the screening endpoints. Everything here sits behind
// the auth middleware: no analysis route is reachable without a verified
// caller identity.
type AnalysisModule struct {
	Handler *handlers.AnalysisHandler
	JWT     *helpers.JWTManager
}

func NewAnalysisModule(h *handlers.AnalysisHandler, jwt *helpers.JWTManager) *AnalysisModule {
	return &AnalysisModule{Handler: h, JWT: jwt}
}

func (m *AnalysisModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/analyses", m.Handler.Submit)
		auth.GET("/analyses", m.Handler.List)
		auth.GET("/analyses/search", m.Handler.Search)
		auth.GET("/analyses/:id", m.Handler.Get)
		auth.GET("/analyses/:id/image", m.Handler.GetImage)
	}
}
