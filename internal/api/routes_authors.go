package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/handlers"
)

func registerAuthorRoutes(api *gin.RouterGroup, handler *handlers.AuthorHandler) {
	authors := api.Group("/authors")
	{
		authors.GET("", handler.List)
		authors.GET("/:id", handler.Get)
		authors.POST("", handler.Create)
		authors.PATCH("/:id", handler.Update)
		authors.DELETE("/:id", handler.Delete)
	}
}
