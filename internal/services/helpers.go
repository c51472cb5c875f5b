package services

import (
	"context"
	"strings"
)

func normaliseIDs(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func containsString(values []string, target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	for _, value := range values {
		if strings.TrimSpace(value) == target {
			return true
		}
	}
	return false
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// pageBounds clamps pagination input to 1-based pages of at most 200 rows.
func pageBounds(page, perPage int) (offset, limit int) {
	if page <= 0 {
		page = 1
	}
	switch {
	case perPage <= 0:
		perPage = 50
	case perPage > 200:
		perPage = 200
	}
	return (page - 1) * perPage, perPage
}
