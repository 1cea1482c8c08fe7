package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabled(t *testing.T) {
	require.NoError(t, Init(false, "", nil))
	assert.False(t, Enabled())

	ctx, span := StartSpan(context.Background(), "refresh")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())

	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)
}

func TestEnabled_WritesSpans(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(true, "tradestats-test", &buf))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })

	ctx, span := StartSpan(context.Background(), "refresh")
	traceID, spanID, ok := GetTraceFields(ctx)
	require.True(t, ok)
	assert.NotEmpty(t, traceID)
	assert.NotEmpty(t, spanID)
	span.End()

	assert.Contains(t, buf.String(), `"Name":"refresh"`)
	assert.Contains(t, buf.String(), "tradestats-test")
}
