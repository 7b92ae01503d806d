package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompositeKey(t *testing.T) {
	require.Equal(t, CompositeKey("council", "42", ""), CompositeKey("council", "42", ""))
	require.NotEqual(t, CompositeKey("a|b", "c"), CompositeKey("a", "b|c"))
	require.NotEqual(t, CompositeKey("a", ""), CompositeKey("", "a"))
	require.Len(t, CompositeKey("x"), 64)
}
