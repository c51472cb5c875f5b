package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/internal/permissions"
	"github.com/charlesng35/inkhub/internal/services"
	"github.com/charlesng35/inkhub/pkg/response"
)

type MeHandler struct {
	users       *services.UserService
	checker     *permissions.Checker
	memberships *services.MembershipService
}

type meResponse struct {
	User        *models.User     `json:"user"`
	Permissions []permissions.ID `json:"permissions"`
}

func NewMeHandler(users *services.UserService, checker *permissions.Checker, memberships *services.MembershipService) *MeHandler {
	return &MeHandler{users: users, checker: checker, memberships: memberships}
}

// GET /api/me
func (h *MeHandler) Get(c *gin.Context) {
	ctx := requestContext(c)
	userID := currentUserID(c)

	user, err := h.users.Get(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	perms, err := h.checker.GetUserPermissions(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, meResponse{User: user, Permissions: perms})
}

// GET /api/me/permissions
func (h *MeHandler) Permissions(c *gin.Context) {
	perms, err := h.checker.GetUserPermissions(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// GET /api/me/groups
func (h *MeHandler) Groups(c *gin.Context) {
	ctx := requestContext(c)
	userID := currentUserID(c)

	groupIDs, err := h.memberships.GroupIDs(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	primary, _, err := h.memberships.PrimaryGroupID(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"group_ids":        groupIDs,
		"primary_group_id": primary,
	})
}
