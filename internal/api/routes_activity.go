package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/handlers"
	"github.com/charlesng35/inkhub/internal/middleware"
	"github.com/charlesng35/inkhub/internal/permissions"
)

func registerActivityRoutes(api *gin.RouterGroup, handler *handlers.ActivityHandler, checker *permissions.Checker) {
	api.GET("/activity", middleware.RequirePermission(checker, permissions.ActivityView), handler.List)
}
