package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/handlers"
)

func registerWorkRoutes(api *gin.RouterGroup, works *handlers.WorkHandler, chapters *handlers.ChapterHandler) {
	group := api.Group("/works")
	{
		group.GET("", works.List)
		group.GET("/:id", works.Get)
		group.POST("", works.Create)
		group.PATCH("/:id", works.Update)
		group.DELETE("/:id", works.Delete)
		group.GET("/:id/authorization", works.Authorization)
		group.GET("/:id/claims", works.ListClaims)
		group.POST("/:id/claims", works.Claim)
		group.DELETE("/:id/claims/:groupID", works.ReleaseClaim)
		group.GET("/:id/chapters", chapters.List)
		group.POST("/:id/chapters", chapters.Create)
	}

	api.PATCH("/chapters/:id", chapters.Update)
	api.DELETE("/chapters/:id", chapters.Delete)
}
