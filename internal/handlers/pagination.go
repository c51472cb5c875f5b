package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/pkg/response"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

type pageQuery struct {
	Page    int
	PerPage int
}

func parsePageQuery(c *gin.Context) pageQuery {
	page := parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := parseIntQuery(c, "per_page", defaultPerPage)
	switch {
	case perPage < 1:
		perPage = defaultPerPage
	case perPage > maxPerPage:
		perPage = maxPerPage
	}
	return pageQuery{Page: page, PerPage: perPage}
}

func (p pageQuery) meta(total int64) *response.Meta {
	pages := 0
	if total > 0 {
		pages = int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	}
	return &response.Meta{
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      int(total),
		TotalPages: pages,
	}
}
