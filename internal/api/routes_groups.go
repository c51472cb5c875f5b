package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/handlers"
)

// Group routes authorise inside the service; leaders and grant holders differ per group.
func registerGroupRoutes(api *gin.RouterGroup, handler *handlers.GroupHandler) {
	groups := api.Group("/groups")
	{
		groups.GET("", handler.List)
		groups.GET("/:id", handler.Get)
		groups.POST("", handler.Create)
		groups.PATCH("/:id", handler.Update)
		groups.DELETE("/:id", handler.Delete)
		groups.GET("/:id/members", handler.ListMembers)
		groups.POST("/:id/invites", handler.Invite)
		groups.PATCH("/:id/members/:userID", handler.SetMemberRole)
		groups.DELETE("/:id/members/:userID", handler.RemoveMember)
	}
	api.POST("/invites/:id/accept", handler.AcceptInvite)
}
