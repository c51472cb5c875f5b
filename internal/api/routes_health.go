package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/inkhub/internal/handlers"
	"github.com/charlesng35/inkhub/internal/monitoring"
)

const healthProbeTimeout = 2 * time.Second

func registerHealthRoutes(r *gin.Engine, db *gorm.DB) {
	manager := monitoring.NewHealthManager(healthProbeTimeout)
	manager.RegisterReadiness(monitoring.DatabaseCheck(db))
	manager.RegisterReadiness(monitoring.CatalogCheck(db))

	handler := handlers.NewHealthHandler(manager)
	registerHealthEndpoints(r, handler)
	registerHealthEndpoints(r.Group("/api"), handler)
}

func registerHealthEndpoints(router gin.IRouter, handler *handlers.HealthHandler) {
	router.GET("/health", handler.Health)
	router.GET("/health/live", handler.Live)
	router.GET("/health/ready", handler.Ready)
}
