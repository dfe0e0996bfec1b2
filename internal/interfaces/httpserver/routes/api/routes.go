package api

import (
	"github.com/gin-gonic/gin"

	"gallery-server/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates gallery route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all gallery routes under the /api prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/api")
	group.POST("/upload", r.handlers.Gallery.Upload)
	group.GET("/files", r.handlers.Gallery.List)
	group.DELETE("/files/:filename", r.handlers.Gallery.Delete)
	group.PUT("/files/:filename", r.handlers.Gallery.Update)
	group.GET("/health", r.handlers.Gallery.Health)
	group.GET("/test", r.handlers.Gallery.Test)
}
