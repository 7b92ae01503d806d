package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestWriter(s ItemStore, p RetryPolicy) (*BatchWriter, *[]time.Duration) {
	var waits []time.Duration
	w := NewBatchWriter(s, p)
	w.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return w, &waits
}

func numbered(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{"project_id": "p1", "number": fmt.Sprintf("%03d", i)}
	}
	return items
}

func TestBatchWriterChunks(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(rowsSchema)

	var sizes []int
	m.SetThrottle(func(_ string, batch []Item) []Item {
		sizes = append(sizes, len(batch))
		return nil
	})

	w, waits := newTestWriter(m, RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond})
	n, err := w.WriteAll(ctx, "rows", numbered(60))
	require.NoError(t, err)
	require.Equal(t, 60, n)
	require.Equal(t, []int{25, 25, 10}, sizes)
	require.Empty(t, *waits)
	require.Equal(t, 60, m.Len("rows"))
}

func TestBatchWriterResubmitsOnlyUnprocessed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(rowsSchema)

	var sizes []int
	calls := 0
	m.SetThrottle(func(_ string, batch []Item) []Item {
		calls++
		sizes = append(sizes, len(batch))
		if calls == 1 {
			return batch[:4]
		}
		return nil
	})

	w, waits := newTestWriter(m, RetryPolicy{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second})
	n, err := w.WriteAll(ctx, "rows", numbered(10))
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.Equal(t, []int{10, 4}, sizes)
	require.Equal(t, []time.Duration{10 * time.Millisecond}, *waits)
	require.Equal(t, 10, m.Len("rows"))
}

func TestBatchWriterExceedsRetries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(rowsSchema)
	m.SetThrottle(func(_ string, batch []Item) []Item { return batch[:1] })

	w, waits := newTestWriter(m, RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Second})
	n, err := w.WriteAll(ctx, "rows", numbered(5))
	require.ErrorIs(t, err, ErrBatchRetriesExceeded)
	require.Contains(t, err.Error(), "rows")
	require.Equal(t, 4, n)
	require.Len(t, *waits, 2)
}

func TestBatchWriterHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory(rowsSchema)
	m.SetThrottle(func(_ string, batch []Item) []Item { return batch })

	w := NewBatchWriter(m, RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour})
	_, err := w.WriteAll(ctx, "rows", numbered(1))
	require.ErrorIs(t, err, context.Canceled)
}
