package ctxlog

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_Missing(t *testing.T) {
	logger := FromContext(context.Background())
	assert.NotNil(t, logger)
	logger.Info("dropped")
}

func TestWithLogger_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", "text", &buf)
	ctx := WithLogger(context.Background(), logger)

	FromContext(ctx).Debug("resolved module", "path", "/a.ts")
	assert.Contains(t, buf.String(), "resolved module")
	assert.Contains(t, buf.String(), "path=/a.ts")
}

func TestNew_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "n", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"n":1`)
}
