package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	require.Equal(t, 100*time.Millisecond, p.Delay(0))
	require.Equal(t, 200*time.Millisecond, p.Delay(1))
	require.Equal(t, 800*time.Millisecond, p.Delay(3))
	require.Equal(t, time.Second, p.Delay(4))
	require.Equal(t, time.Second, p.Delay(60))

	require.Zero(t, RetryPolicy{}.Delay(3))
}

func TestRetryPolicyJitter(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Jitter: 0.5}
	for i := 0; i < 50; i++ {
		d := p.Delay(1)
		require.GreaterOrEqual(t, d, 100*time.Millisecond)
		require.LessOrEqual(t, d, 200*time.Millisecond)
	}
}

func TestRetryPolicyAllows(t *testing.T) {
	p := RetryPolicy{MaxRetries: 2}
	require.True(t, p.Allows(0))
	require.True(t, p.Allows(1))
	require.False(t, p.Allows(2))
	require.False(t, RetryPolicy{}.Allows(0))
}
