package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitRejectsUnknownFormat(t *testing.T) {
	_, err := Init("info", "xml")
	require.Error(t, err)

	_, err = Init("loud", "json")
	require.Error(t, err)
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base, err := InitWriter(&buf, "debug", "json")
	require.NoError(t, err)

	require.Same(t, base, FromContext(context.Background()))

	scoped := base.With(zap.String("request_id", "req-1"))
	ctx := WithContext(context.Background(), scoped)
	FromContext(ctx).Info("hello")
	Sync()

	require.True(t, strings.Contains(buf.String(), `"request_id":"req-1"`))
}
