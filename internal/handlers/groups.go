package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/models"
	"github.com/charlesng35/inkhub/internal/services"
	"github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/response"
)

type GroupHandler struct {
	svc *services.GroupService
}

type createGroupRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=128"`
	Description string `json:"description" validate:"omitempty,max=4096"`
	Website     string `json:"website" validate:"omitempty,url,max=255"`
}

type updateGroupRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=128"`
	Description *string `json:"description" validate:"omitempty,max=4096"`
	Website     *string `json:"website" validate:"omitempty,url,max=255"`
}

type inviteRequest struct {
	UserID string `json:"user_id" validate:"required,notblank"`
	Role   string `json:"role" validate:"omitempty"`
}

type memberRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func NewGroupHandler(svc *services.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

// GET /api/groups
func (h *GroupHandler) List(c *gin.Context) {
	page := parsePageQuery(c)
	groups, total, err := h.svc.List(requestContext(c), page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, groups, page.meta(total))
}

// GET /api/groups/:id
func (h *GroupHandler) Get(c *gin.Context) {
	group, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, group)
}

// POST /api/groups
func (h *GroupHandler) Create(c *gin.Context) {
	var body createGroupRequest
	if !bindAndValidate(c, &body) {
		return
	}

	group, err := h.svc.Create(requestContext(c), currentUserID(c), services.CreateGroupInput{
		Name:        body.Name,
		Description: body.Description,
		Website:     body.Website,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, group)
}

// PATCH /api/groups/:id
func (h *GroupHandler) Update(c *gin.Context) {
	var body updateGroupRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.Name == nil && body.Description == nil && body.Website == nil {
		response.Error(c, errors.NewBadRequest("no fields provided for update"))
		return
	}

	group, err := h.svc.Update(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateGroupInput{
		Name:        body.Name,
		Description: body.Description,
		Website:     body.Website,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, group)
}

// DELETE /api/groups/:id
func (h *GroupHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/groups/:id/members
func (h *GroupHandler) ListMembers(c *gin.Context) {
	members, err := h.svc.ListMembers(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, members)
}

// POST /api/groups/:id/invites
func (h *GroupHandler) Invite(c *gin.Context) {
	var body inviteRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role := models.GroupRoleMember
	if body.Role != "" {
		parsed, ok := models.ParseGroupRole(body.Role)
		if !ok {
			response.Error(c, errors.NewBadRequest("role must be LEADER, MEMBER or UPLOADER"))
			return
		}
		role = parsed
	}

	invite, err := h.svc.Invite(requestContext(c), currentUserID(c), c.Param("id"), body.UserID, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, invite)
}

// POST /api/invites/:id/accept
func (h *GroupHandler) AcceptInvite(c *gin.Context) {
	member, err := h.svc.AcceptInvite(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, member)
}

// PATCH /api/groups/:id/members/:userID
func (h *GroupHandler) SetMemberRole(c *gin.Context) {
	var body memberRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}
	role, ok := models.ParseGroupRole(body.Role)
	if !ok {
		response.Error(c, errors.NewBadRequest("role must be LEADER, MEMBER or UPLOADER"))
		return
	}

	member, err := h.svc.SetMemberRole(requestContext(c), currentUserID(c), c.Param("id"), c.Param("userID"), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, member)
}

// DELETE /api/groups/:id/members/:userID
// Removing yourself is leaving the group and needs no leader rights.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	ctx := requestContext(c)
	actorID := currentUserID(c)
	target := c.Param("userID")

	var err error
	if target == actorID {
		err = h.svc.Leave(ctx, actorID, c.Param("id"))
	} else {
		err = h.svc.RemoveMember(ctx, actorID, c.Param("id"), target)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
