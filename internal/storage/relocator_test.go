package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const bucket = "app-planease-files"

func fixedRelocator(m ObjectStore) *Relocator {
	r := NewRelocator(m)
	r.now = func() time.Time { return time.Unix(0, 1700000000123456789) }
	return r
}

func TestRelocateCopiesBytes(t *testing.T) {
	m := NewMemory()
	m.Put(bucket, "intake/s1/plan.pdf", []byte("%PDF-1.7 plan"))

	got, err := fixedRelocator(m).Relocate(context.Background(),
		Locator{Bucket: bucket, Key: "intake/s1/plan.pdf"},
		Locator{Bucket: bucket, Key: "projects/p1/documents/d1/plan.pdf"})
	require.NoError(t, err)
	require.Equal(t, "projects/p1/documents/d1/plan.pdf", got.Key)

	data, ok := m.Get(bucket, got.Key)
	require.True(t, ok)
	require.Equal(t, []byte("%PDF-1.7 plan"), data)

	// source is left in place
	_, ok = m.Get(bucket, "intake/s1/plan.pdf")
	require.True(t, ok)
}

func TestRelocateCollision(t *testing.T) {
	m := NewMemory()
	m.Put(bucket, "intake/s1/plan.pdf", []byte("new content"))
	m.Put(bucket, "projects/p1/documents/d1/plan.pdf", []byte("old content"))

	got, err := fixedRelocator(m).Relocate(context.Background(),
		Locator{Bucket: bucket, Key: "intake/s1/plan.pdf"},
		Locator{Key: "projects/p1/documents/d1/plan.pdf"})
	require.NoError(t, err)
	require.Equal(t, "projects/p1/documents/d1/plan-1700000000123456789.pdf", got.Key)
	require.Equal(t, bucket, got.Bucket)

	data, ok := m.Get(bucket, got.Key)
	require.True(t, ok)
	require.Equal(t, []byte("new content"), data)

	old, _ := m.Get(bucket, "projects/p1/documents/d1/plan.pdf")
	require.Equal(t, []byte("old content"), old)
}

func TestRelocateFailures(t *testing.T) {
	src := Locator{Bucket: bucket, Key: "intake/s1/plan.pdf"}
	dst := Locator{Bucket: bucket, Key: "projects/p1/documents/d1/plan.pdf"}

	t.Run("missing source", func(t *testing.T) {
		_, err := fixedRelocator(NewMemory()).Relocate(context.Background(), src, dst)
		require.ErrorIs(t, err, ErrRelocationFailed)
		require.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("verify fails", func(t *testing.T) {
		m := NewMemory()
		m.Put(bucket, src.Key, []byte("x"))
		m.DropCopies = true

		_, err := fixedRelocator(m).Relocate(context.Background(), src, dst)
		require.ErrorIs(t, err, ErrRelocationFailed)
		require.Contains(t, err.Error(), "not visible")
	})

	t.Run("second collision", func(t *testing.T) {
		m := NewMemory()
		m.Put(bucket, src.Key, []byte("x"))
		m.Put(bucket, dst.Key, []byte("y"))
		m.Put(bucket, "projects/p1/documents/d1/plan-1700000000123456789.pdf", []byte("z"))

		_, err := fixedRelocator(m).Relocate(context.Background(), src, dst)
		require.ErrorIs(t, err, ErrRelocationFailed)
	})

	t.Run("copy error", func(t *testing.T) {
		m := NewMemory()
		m.Put(bucket, src.Key, []byte("x"))
		m.CopyErr = errors.New("access denied")

		_, err := fixedRelocator(m).Relocate(context.Background(), src, dst)
		require.ErrorIs(t, err, ErrRelocationFailed)
		require.True(t, strings.Contains(err.Error(), "access denied"))
	})

	t.Run("cross bucket", func(t *testing.T) {
		_, err := fixedRelocator(NewMemory()).Relocate(context.Background(), src, Locator{Bucket: "other", Key: dst.Key})
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestWithSuffix(t *testing.T) {
	require.Equal(t, "a/b/file-1.pdf", WithSuffix("a/b/file.pdf", "1"))
	require.Equal(t, "a/b/archive.tar-1.gz", WithSuffix("a/b/archive.tar.gz", "1"))
	require.Equal(t, "noext-1", WithSuffix("noext", "1"))
	require.Equal(t, "d/.env-1", WithSuffix("d/.env", "1"))
}
