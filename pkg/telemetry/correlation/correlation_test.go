package correlation

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestEnsureCorrelationID_GeneratesULID(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	require.NotEmpty(t, cid)
	_, err := ulid.Parse(cid)
	assert.NoError(t, err)
	assert.Equal(t, cid, ExtractCorrelationID(ctx))

	_, again := EnsureCorrelationID(ctx)
	assert.Equal(t, cid, again)
}

func TestContextWithRemoteSpan(t *testing.T) {
	ctx := ContextWithRemoteSpan(context.Background(), "4bf92f3577b34da6a3ce929d0e0e4736", "00f067aa0ba902b7")
	sc := trace.SpanContextFromContext(ctx)
	assert.True(t, sc.IsValid())
	assert.True(t, sc.IsRemote())

	ctx = ContextWithRemoteSpan(context.Background(), "nope", "")
	assert.False(t, trace.SpanContextFromContext(ctx).IsValid())
}
