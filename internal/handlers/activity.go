package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/internal/services"
	"github.com/charlesng35/inkhub/pkg/errors"
	"github.com/charlesng35/inkhub/pkg/response"
)

type ActivityHandler struct {
	svc *services.ActivityService
}

func NewActivityHandler(svc *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// GET /api/activity
func (h *ActivityHandler) List(c *gin.Context) {
	page := parsePageQuery(c)

	since, err := parseTimeQuery(c, "since")
	if err != nil {
		response.Error(c, err)
		return
	}
	until, err := parseTimeQuery(c, "until")
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, total, err := h.svc.List(requestContext(c), services.ActivityListOptions{
		Page:     page.Page,
		PageSize: page.PerPage,
		Filters: services.ActivityFilters{
			PerformedBy: strings.TrimSpace(c.Query("performed_by")),
			Action:      strings.TrimSpace(c.Query("action")),
			EntityType:  strings.TrimSpace(c.Query("entity_type")),
			EntityID:    strings.TrimSpace(c.Query("entity_id")),
			Since:       since,
			Until:       until,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, entries, page.meta(total))
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.NewBadRequest(key + " must be an RFC3339 timestamp")
	}
	return &parsed, nil
}
