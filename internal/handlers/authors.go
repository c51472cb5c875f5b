package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/services"
	"github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/response"
)

type AuthorHandler struct {
	svc *services.AuthorService
}

type createAuthorRequest struct {
	Name       string `json:"name" validate:"required,notblank,max=128"`
	Bio        string `json:"bio" validate:"omitempty,max=8192"`
	LinkToSelf bool   `json:"link_to_self"`
}

type updateAuthorRequest struct {
	Name *string `json:"name" validate:"omitempty,notblank,max=128"`
	Bio  *string `json:"bio" validate:"omitempty,max=8192"`
}

func NewAuthorHandler(svc *services.AuthorService) *AuthorHandler {
	return &AuthorHandler{svc: svc}
}

// GET /api/authors?q=
func (h *AuthorHandler) List(c *gin.Context) {
	page := parsePageQuery(c)
	authors, total, err := h.svc.List(requestContext(c), c.Query("q"), page.Page, page.PerPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, authors, page.meta(total))
}

// GET /api/authors/:id
func (h *AuthorHandler) Get(c *gin.Context) {
	author, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, author)
}

// POST /api/authors
func (h *AuthorHandler) Create(c *gin.Context) {
	var body createAuthorRequest
	if !bindAndValidate(c, &body) {
		return
	}

	author, err := h.svc.Create(requestContext(c), currentUserID(c), services.CreateAuthorInput{
		Name:       body.Name,
		Bio:        body.Bio,
		LinkToSelf: body.LinkToSelf,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, author)
}

// PATCH /api/authors/:id
func (h *AuthorHandler) Update(c *gin.Context) {
	var body updateAuthorRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.Name == nil && body.Bio == nil {
		response.Error(c, errors.NewBadRequest("no fields provided for update"))
		return
	}

	author, err := h.svc.Update(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateAuthorInput{
		Name: body.Name,
		Bio:  body.Bio,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, author)
}

// DELETE /api/authors/:id
func (h *AuthorHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
