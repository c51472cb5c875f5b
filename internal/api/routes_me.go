package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/handlers"
)

func registerMeRoutes(api *gin.RouterGroup, handler *handlers.MeHandler) {
	me := api.Group("/me")
	{
		me.GET("", handler.Get)
		me.GET("/permissions", handler.Permissions)
		me.GET("/groups", handler.Groups)
	}
}
