package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/permissions"
	"github.com/charlesng35/inkhub/internal/services"
	"github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/response"
)

// RequirePermission checks that the authenticated user holds permissionID.
func RequirePermission(checker services.PermissionChecker, permissionID permissions.ID) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserIDKey)
		if userID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed, err := checker.HasPermission(c.Request.Context(), userID, permissionID)
		if err != nil {
			response.Error(c, errors.Wrap(err, "permission check failed"))
			c.Abort()
			return
		}
		if !allowed {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
