package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Equal(t, "", GetRequestID(context.Background()))
}

func TestWithTenantID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, enriched := WithTenantID(context.Background(), base, "tenant-1")
	enriched.Info("hello")

	assert.Equal(t, "tenant-1", GetTenantID(ctx))
	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "tenant-1", entries[0].ContextMap()["tenant_id"])
}

func TestWithStoreID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, enriched := WithStoreID(context.Background(), base, "store-9")
	enriched.Info("hello")

	assert.Equal(t, "store-9", GetStoreID(ctx))
	assert.Equal(t, "store-9", logs.All()[0].ContextMap()["store_id"])
}

func TestFromContext_AllFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx, _ = WithTenantID(ctx, base, "tenant-1")
	ctx, _ = WithStoreID(ctx, base, "store-1")

	FromContext(ctx, base).Info("hello")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "tenant-1", fields["tenant_id"])
	assert.Equal(t, "store-1", fields["store_id"])
}

func TestFromContext_EmptyContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	FromContext(context.Background(), base).Info("hello")

	assert.Empty(t, logs.All()[0].ContextMap())
}
