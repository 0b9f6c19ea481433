package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsBadLevel(t *testing.T) {
	err := Init(Config{Level: "loud"})
	assert.Error(t, err)
	assert.NotNil(t, Get())
}

func TestFromContextAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := ContextWith(context.Background(), RequestIDKey, "req-1")
	ctx = ContextWith(ctx, ModelKey, "m1")
	ctx = ContextWith(ctx, OperationKey, "train")

	FromContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "m1", fields["model"])
	assert.Equal(t, "train", fields["operation"])
}

func TestNewDebugFileLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	log, closeFn, err := NewDebugFileLogger(dir, 7)
	require.NoError(t, err)
	log.Debug("execution arguments", zap.String("test_size", "0.33"))
	require.NoError(t, closeFn())

	data, err := os.ReadFile(filepath.Join(dir, "nebula-ml-debug-7.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "execution arguments")
	assert.Contains(t, string(data), "test_size")
}
