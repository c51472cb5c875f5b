package auditctx

import (
	"context"
	"strings"
	"unicode/utf8"
)

const maxUserAgentLength = 255

// Origin describes where a mutating request came from. It rides on the request
// context so the activity ledger can stamp entries without every service
// signature carrying it.
type Origin struct {
	IPAddress string
	UserAgent string
}

type originContextKey struct{}

// WithOrigin returns a derived context carrying origin.
func WithOrigin(ctx context.Context, origin Origin) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	origin.UserAgent = truncateUTF8(strings.ToValidUTF8(origin.UserAgent, ""), maxUserAgentLength)
	return context.WithValue(ctx, originContextKey{}, origin)
}

// truncateUTF8 cuts value to at most limit bytes without splitting a rune.
func truncateUTF8(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}

// FromContext extracts the origin stored by WithOrigin.
func FromContext(ctx context.Context) (Origin, bool) {
	if ctx == nil {
		return Origin{}, false
	}
	origin, ok := ctx.Value(originContextKey{}).(Origin)
	return origin, ok
}
