package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/permissions"
	"github.com/charlesng35/inkhub/internal/services"
	"github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/response"
)

type RoleHandler struct {
	svc *services.RoleService
}

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,notblank,max=64"`
	Description string   `json:"description" validate:"omitempty,max=255"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,notblank"`
}

type updateRoleRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=64"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

type setRolePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"dive,notblank"`
}

type assignRoleRequest struct {
	RoleID string `json:"role_id"`
}

func NewRoleHandler(svc *services.RoleService) *RoleHandler {
	return &RoleHandler{svc: svc}
}

type permissionView struct {
	ID          permissions.ID   `json:"id"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	DependsOn   []permissions.ID `json:"depends_on,omitempty"`
	Implies     []permissions.ID `json:"implies,omitempty"`
}

// GET /api/permissions
func (h *RoleHandler) Catalog(c *gin.Context) {
	ids := permissions.IDs()
	views := make([]permissionView, 0, len(ids))
	for _, id := range ids {
		perm, ok := permissions.Get(id)
		if !ok {
			continue
		}
		views = append(views, permissionView{
			ID:          perm.ID,
			Category:    perm.ID.Category(),
			Description: perm.Description,
			DependsOn:   perm.DependsOn,
			Implies:     perm.Implies,
		})
	}
	response.Success(c, http.StatusOK, views)
}

// GET /api/roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// GET /api/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var body createRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := h.svc.Create(requestContext(c), currentUserID(c), services.CreateRoleInput{
		Name:        body.Name,
		Description: body.Description,
		Permissions: body.Permissions,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// PATCH /api/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	var body updateRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.Name == nil && body.Description == nil {
		response.Error(c, errors.NewBadRequest("no fields provided for update"))
		return
	}

	role, err := h.svc.Update(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateRoleInput{
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// PUT /api/roles/:id/permissions
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	var body setRolePermissionsRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := h.svc.SetPermissions(requestContext(c), currentUserID(c), c.Param("id"), body.Permissions)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// PUT /api/users/:id/role
func (h *RoleHandler) AssignUserRole(c *gin.Context) {
	var body assignRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.svc.AssignUserRole(requestContext(c), currentUserID(c), c.Param("id"), body.RoleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}
