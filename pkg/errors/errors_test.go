package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndIsCode(t *testing.T) {
	base := errors.New("throttled")
	err := Wrap(base, CodeBatchWriteExceededRetries, "conditions batch write")

	require.True(t, IsCode(err, CodeBatchWriteExceededRetries))
	require.False(t, IsCode(err, CodeNotFound))
	require.ErrorIs(t, err, base)
	require.Equal(t, "BatchWriteExceededRetries: conditions batch write: throttled", err.Error())
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(CodeRelocationFailed, "verify failed"))
	require.Equal(t, CodeRelocationFailed, CodeOf(wrapped))
	require.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
}

func TestWithMeta(t *testing.T) {
	err := New(CodeNotFound, "session not found").WithMeta("session_id", "s1")
	require.Equal(t, "s1", err.Meta["session_id"])
}
