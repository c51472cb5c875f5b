package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/auditctx"
	iauth "github.com/charlesng35/inkhub/internal/auth"
	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/internal/services"
	"github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
)

// UserMirror keeps a local row for every authenticated identity.
type UserMirror interface {
	EnsureUser(ctx context.Context, identity services.Identity) (*models.User, error)
}

// Auth validates the bearer session token and mirrors the caller into the users
// table before the request proceeds.
func Auth(jwt *iauth.JWTService, users UserMirror) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(strings.TrimSpace(authz[7:]))
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(auditctx.WithOrigin(c.Request.Context(), auditctx.Origin{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}))

		if users != nil {
			if _, err := users.EnsureUser(c.Request.Context(), services.Identity{
				UserID:      claims.UserID(),
				Username:    claims.Username,
				Email:       claims.Email,
				DisplayName: claims.DisplayName,
			}); err != nil {
				response.Error(c, err)
				c.Abort()
				return
			}
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID())
		c.Next()
	}
}
