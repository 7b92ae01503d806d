package storage

import (
	"bytes"
	"context"
	"sync"
)

// Memory is an in-process ObjectStore for tests and local runs.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte

	// DropCopies makes Copy report success without writing, so post-copy
	// verification can be exercised.
	DropCopies bool
	// CopyErr, when set, is returned by every Copy.
	CopyErr error
}

var _ ObjectStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}}
}

func (m *Memory) Put(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = bytes.Clone(data)
}

// Get returns a copy of the object's bytes.
func (m *Memory) Get(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[bucket+"/"+key]
	return bytes.Clone(b), ok
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *Memory) Copy(_ context.Context, bucket, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CopyErr != nil {
		return newError("copy", bucket, srcKey, m.CopyErr)
	}
	src, ok := m.objects[bucket+"/"+srcKey]
	if !ok {
		return newError("copy", bucket, srcKey, ErrObjectNotFound)
	}
	if m.DropCopies {
		return nil
	}
	m.objects[bucket+"/"+dstKey] = bytes.Clone(src)
	return nil
}

func (m *Memory) Exists(_ context.Context, bucket, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[bucket+"/"+key]
	return ok, nil
}
