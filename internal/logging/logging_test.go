package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWithContextFallsBackToGlobal(t *testing.T) {
	global := zap.NewExample()
	Set(global)
	t.Cleanup(func() { Set(zap.NewNop()) })

	assert.Same(t, global, WithContext(context.Background()))

	scoped := global.With(zap.String("request_id", "abc"))
	ctx := NewContext(context.Background(), scoped)
	assert.Same(t, scoped, WithContext(ctx))
}

func TestTokenPrefix(t *testing.T) {
	assert.Equal(t, "0123abcd", TokenPrefix("0123abcdef9876").String)
	assert.Equal(t, "short", TokenPrefix("short").String)
}

func TestInitUnknownLevelDefaultsToInfo(t *testing.T) {
	t.Cleanup(func() { Set(zap.NewNop()) })
	assert.NoError(t, Init(Config{Level: "chatty", Format: "console"}))
	assert.True(t, L().Core().Enabled(zap.InfoLevel))
	assert.False(t, L().Core().Enabled(zap.DebugLevel))
}
