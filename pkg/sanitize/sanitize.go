package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcOnce   sync.Once
	ugcPolicy *bluemonday.Policy

	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

// HTML cleans user supplied rich text (work synopses, chapter notes), keeping
// formatting and safe links while dropping scripts and event handlers.
func HTML(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	ugcOnce.Do(func() {
		ugcPolicy = bluemonday.UGCPolicy()
		ugcPolicy.RequireNoFollowOnLinks(true)
		ugcPolicy.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	})
	return strings.TrimSpace(ugcPolicy.Sanitize(input))
}

// Text strips every tag and returns unescaped plain text, used for titles and names.
func Text(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}
