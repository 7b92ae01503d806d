package services

import (
	"fmt"
	"sync"
)

// trace records the finalisation steps reached so far. It is returned to the
// caller on failure and never persisted.
type trace struct {
	mu    sync.Mutex
	steps []string
}

func (t *trace) mark(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, fmt.Sprintf(format, args...))
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.steps...)
}
