package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	require.NoError(t, Init("debug", "production"))
	assert.NotNil(t, Get())

	require.NoError(t, Init("not-a-level", "development"))
	assert.True(t, Get().Core().Enabled(0), "unknown level should fall back to info")
}

func TestTraceAndUserContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetUserID(ctx))

	traceID := NewTraceID()
	assert.Len(t, traceID, 36)

	ctx = WithTraceID(ctx, traceID)
	ctx = WithUserID(ctx, "user-1")
	assert.Equal(t, traceID, GetTraceID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))

	// A plain string key must not collide with the typed key
	ctx = context.WithValue(context.Background(), "trace_id", "spoofed")
	assert.Empty(t, GetTraceID(ctx))

	assert.NotNil(t, WithContext(WithTraceID(context.Background(), traceID)))
}
