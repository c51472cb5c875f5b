package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/handlers"
	"github.com/charlesng35/inkhub/internal/middleware"
	"github.com/charlesng35/inkhub/internal/permissions"
)

func registerRoleRoutes(api *gin.RouterGroup, handler *handlers.RoleHandler, checker *permissions.Checker) {
	api.GET("/permissions", middleware.RequirePermission(checker, permissions.RolesView), handler.Catalog)

	roles := api.Group("/roles")
	{
		roles.GET("", middleware.RequirePermission(checker, permissions.RolesView), handler.List)
		roles.GET("/:id", middleware.RequirePermission(checker, permissions.RolesView), handler.Get)
		roles.POST("", middleware.RequirePermission(checker, permissions.RolesManage), handler.Create)
		roles.PATCH("/:id", middleware.RequirePermission(checker, permissions.RolesManage), handler.Update)
		roles.DELETE("/:id", middleware.RequirePermission(checker, permissions.RolesManage), handler.Delete)
		roles.PUT("/:id/permissions", middleware.RequirePermission(checker, permissions.RolesManage), handler.SetPermissions)
	}

	api.PUT("/users/:id/role", middleware.RequirePermission(checker, permissions.UsersAssignRole), handler.AssignUserRole)
}
