package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/services"
	"github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/response"
)

type WorkHandler struct {
	works  *services.WorkService
	claims *services.ClaimService
}

type createWorkRequest struct {
	Kind        string   `json:"kind" validate:"required,notblank"`
	Title       string   `json:"title" validate:"required,notblank,max=255"`
	Description string   `json:"description" validate:"omitempty,max=20000"`
	Status      string   `json:"status" validate:"omitempty"`
	GroupIDs    []string `json:"group_ids" validate:"omitempty,dive,notblank"`
	AuthorIDs   []string `json:"author_ids" validate:"omitempty,dive,notblank"`
}

type updateWorkRequest struct {
	Title       *string   `json:"title" validate:"omitempty,notblank,max=255"`
	Description *string   `json:"description" validate:"omitempty,max=20000"`
	Status      *string   `json:"status" validate:"omitempty"`
	AuthorIDs   *[]string `json:"author_ids" validate:"omitempty,dive,notblank"`
}

type claimRequest struct {
	GroupID string `json:"group_id" validate:"required,notblank"`
}

func NewWorkHandler(works *services.WorkService, claims *services.ClaimService) *WorkHandler {
	return &WorkHandler{works: works, claims: claims}
}

// GET /api/works
func (h *WorkHandler) List(c *gin.Context) {
	page := parsePageQuery(c)
	works, total, err := h.works.List(requestContext(c), services.WorkListOptions{
		Kind:     c.Query("kind"),
		GroupID:  c.Query("group_id"),
		Page:     page.Page,
		PageSize: page.PerPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, works, page.meta(total))
}

// GET /api/works/:id
func (h *WorkHandler) Get(c *gin.Context) {
	work, err := h.works.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, work)
}

// POST /api/works
func (h *WorkHandler) Create(c *gin.Context) {
	var body createWorkRequest
	if !bindAndValidate(c, &body) {
		return
	}

	work, err := h.works.Create(requestContext(c), currentUserID(c), services.CreateWorkInput{
		Kind:        body.Kind,
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		GroupIDs:    body.GroupIDs,
		AuthorIDs:   body.AuthorIDs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, work)
}

// PATCH /api/works/:id
func (h *WorkHandler) Update(c *gin.Context) {
	var body updateWorkRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.Title == nil && body.Description == nil && body.Status == nil && body.AuthorIDs == nil {
		response.Error(c, errors.NewBadRequest("no fields provided for update"))
		return
	}

	work, err := h.works.Update(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateWorkInput{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		AuthorIDs:   body.AuthorIDs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, work)
}

// DELETE /api/works/:id
func (h *WorkHandler) Delete(c *gin.Context) {
	if err := h.works.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/works/:id/claims
func (h *WorkHandler) ListClaims(c *gin.Context) {
	groups, err := h.claims.ListClaimingGroups(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, groups)
}

// POST /api/works/:id/claims
// Responds 201 for a new claim and 200 when the group already held it.
func (h *WorkHandler) Claim(c *gin.Context) {
	var body claimRequest
	if !bindAndValidate(c, &body) {
		return
	}

	result, err := h.claims.ClaimWork(requestContext(c), currentUserID(c), c.Param("id"), body.GroupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.Success(c, status, result)
}

// DELETE /api/works/:id/claims/:groupID
func (h *WorkHandler) ReleaseClaim(c *gin.Context) {
	if err := h.claims.ReleaseClaim(requestContext(c), currentUserID(c), c.Param("id"), c.Param("groupID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"released": true})
}

// GET /api/works/:id/authorization?action=edit
func (h *WorkHandler) Authorization(c *gin.Context) {
	action, ok := services.ParseClaimAction(c.DefaultQuery("action", string(services.ActionEdit)))
	if !ok {
		response.Error(c, errors.NewBadRequest("unknown action"))
		return
	}

	decision, err := h.claims.ResolveClaimAuthorization(requestContext(c), currentUserID(c), c.Param("id"), action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, decision)
}
