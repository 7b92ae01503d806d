package store

import (
	"context"
	"fmt"
	"time"

	"github.com/planease/engine/pkg/logger"
	"go.uber.org/zap"
)

// BatchWriter splits a record set into MaxBatchSize chunks and resubmits only
// the unprocessed subset of each chunk under Policy.
type BatchWriter struct {
	Store  ItemStore
	Policy RetryPolicy

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBatchWriter returns a writer over s using p.
func NewBatchWriter(s ItemStore, p RetryPolicy) *BatchWriter {
	return &BatchWriter{Store: s, Policy: p}
}

// WriteAll persists items into table. It returns ErrBatchRetriesExceeded,
// wrapped with the table name, once a chunk still has unprocessed items after
// Policy.MaxRetries resubmissions.
func (w *BatchWriter) WriteAll(ctx context.Context, table string, items []Item) (int, error) {
	written := 0
	for start := 0; start < len(items); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(items))
		n, err := w.writeChunk(ctx, table, items[start:end])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (w *BatchWriter) writeChunk(ctx context.Context, table string, chunk []Item) (int, error) {
	pending := chunk
	for attempt := 0; ; attempt++ {
		unprocessed, err := w.Store.BatchPut(ctx, table, pending)
		if err != nil {
			return len(chunk) - len(pending), fmt.Errorf("batch put %s: %w", table, err)
		}
		if len(unprocessed) == 0 {
			return len(chunk), nil
		}
		if !w.Policy.Allows(attempt) {
			return len(chunk) - len(unprocessed), fmt.Errorf("%w: table %s, %d items unprocessed after %d retries",
				ErrBatchRetriesExceeded, table, len(unprocessed), w.Policy.MaxRetries)
		}

		delay := w.Policy.Delay(attempt)
		logger.FromContext(ctx).Warn("batch write throttled, retrying unprocessed items",
			zap.String("table", table),
			zap.Int("unprocessed", len(unprocessed)),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		if err := w.wait(ctx, delay); err != nil {
			return len(chunk) - len(unprocessed), err
		}
		pending = unprocessed
	}
}

func (w *BatchWriter) wait(ctx context.Context, d time.Duration) error {
	if w.sleep != nil {
		return w.sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
