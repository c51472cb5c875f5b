package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/services"
	"github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/response"
)

type ChapterHandler struct {
	svc *services.ChapterService
}

type createChapterRequest struct {
	Number   *float64 `json:"number" validate:"required,gte=0"`
	Title    string   `json:"title" validate:"omitempty,max=255"`
	Content  string   `json:"content"`
	Language string   `json:"language" validate:"omitempty,max=16"`
	GroupIDs []string `json:"group_ids" validate:"required,min=1,dive,notblank"`
}

type updateChapterRequest struct {
	Number   *float64 `json:"number" validate:"omitempty,gte=0"`
	Title    *string  `json:"title" validate:"omitempty,max=255"`
	Content  *string  `json:"content"`
	Language *string  `json:"language" validate:"omitempty,max=16"`
}

func NewChapterHandler(svc *services.ChapterService) *ChapterHandler {
	return &ChapterHandler{svc: svc}
}

// GET /api/works/:id/chapters
func (h *ChapterHandler) List(c *gin.Context) {
	chapters, err := h.svc.ListChapters(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, chapters)
}

// POST /api/works/:id/chapters
func (h *ChapterHandler) Create(c *gin.Context) {
	var body createChapterRequest
	if !bindAndValidate(c, &body) {
		return
	}

	chapters, err := h.svc.CreateChapterBatch(requestContext(c), currentUserID(c), services.CreateChapterBatchInput{
		WorkID:   c.Param("id"),
		Number:   *body.Number,
		Title:    body.Title,
		Content:  body.Content,
		Language: body.Language,
		GroupIDs: body.GroupIDs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, chapters)
}

// PATCH /api/chapters/:id
func (h *ChapterHandler) Update(c *gin.Context) {
	var body updateChapterRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.Number == nil && body.Title == nil && body.Content == nil && body.Language == nil {
		response.Error(c, errors.NewBadRequest("no fields provided for update"))
		return
	}

	chapter, err := h.svc.UpdateChapter(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateChapterInput{
		Number:   body.Number,
		Title:    body.Title,
		Content:  body.Content,
		Language: body.Language,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, chapter)
}

// DELETE /api/chapters/:id
func (h *ChapterHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteChapter(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
