package auditctx

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestOriginRoundTrip(t *testing.T) {
	ctx := WithOrigin(context.Background(), Origin{IPAddress: "10.0.0.7", UserAgent: "reader/1.0"})

	origin, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "10.0.0.7", origin.IPAddress)
	require.Equal(t, "reader/1.0", origin.UserAgent)
}

func TestOriginMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)
}

func TestWithOriginTruncatesUserAgent(t *testing.T) {
	ctx := WithOrigin(context.Background(), Origin{UserAgent: strings.Repeat("a", 400)})

	origin, ok := FromContext(ctx)
	require.True(t, ok)
	require.Len(t, origin.UserAgent, maxUserAgentLength)
}

func TestWithOriginKeepsUserAgentValidUTF8(t *testing.T) {
	ctx := WithOrigin(context.Background(), Origin{UserAgent: strings.Repeat("a", 254) + "é"})

	origin, ok := FromContext(ctx)
	require.True(t, ok)
	require.True(t, utf8.ValidString(origin.UserAgent))
	require.Equal(t, strings.Repeat("a", 254), origin.UserAgent)

	ctx = WithOrigin(context.Background(), Origin{UserAgent: "reader\xff/2.0"})
	origin, _ = FromContext(ctx)
	require.Equal(t, "reader/2.0", origin.UserAgent)

	ctx = WithOrigin(context.Background(), Origin{UserAgent: strings.Repeat("漫", 100)})
	origin, _ = FromContext(ctx)
	require.True(t, utf8.ValidString(origin.UserAgent))
	require.LessOrEqual(t, len(origin.UserAgent), maxUserAgentLength)
	require.Equal(t, strings.Repeat("漫", 85), origin.UserAgent)
}
