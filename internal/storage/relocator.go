package storage

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// Relocator copies staged objects to their permanent location. The source is
// never deleted; staging is expired by a bucket lifecycle rule.
type Relocator struct {
	store ObjectStore
	now   func() time.Time
}

func NewRelocator(store ObjectStore) *Relocator {
	return &Relocator{store: store, now: time.Now}
}

// Relocate copies src to dst and returns where the copy landed. An occupied
// dst is disambiguated once with a time suffix on the file name. The copy is
// verified before returning; every failure wraps ErrRelocationFailed and the
// returned locator must then not be referenced.
func (r *Relocator) Relocate(ctx context.Context, src, dst Locator) (Locator, error) {
	if src.Bucket == "" || src.Key == "" || dst.Key == "" {
		return Locator{}, relocateErr(dst, ErrInvalidInput)
	}
	if dst.Bucket == "" {
		dst.Bucket = src.Bucket
	}
	if dst.Bucket != src.Bucket {
		return Locator{}, relocateErr(dst, fmt.Errorf("%w: cross-bucket copy %s -> %s", ErrInvalidInput, src.Bucket, dst.Bucket))
	}

	taken, err := r.store.Exists(ctx, dst.Bucket, dst.Key)
	if err != nil {
		return Locator{}, relocateErr(dst, err)
	}
	if taken {
		dst.Key = WithSuffix(dst.Key, strconv.FormatInt(r.now().UnixNano(), 10))
		taken, err = r.store.Exists(ctx, dst.Bucket, dst.Key)
		if err != nil {
			return Locator{}, relocateErr(dst, err)
		}
		if taken {
			return Locator{}, relocateErr(dst, fmt.Errorf("destination still occupied after disambiguation"))
		}
	}

	if err := r.store.Copy(ctx, src.Bucket, src.Key, dst.Key); err != nil {
		return Locator{}, relocateErr(dst, err)
	}

	ok, err := r.store.Exists(ctx, dst.Bucket, dst.Key)
	if err != nil {
		return Locator{}, relocateErr(dst, err)
	}
	if !ok {
		return Locator{}, relocateErr(dst, fmt.Errorf("copy of %s not visible after write", src))
	}
	return dst, nil
}

// WithSuffix inserts "-suffix" before the extension of the last path segment.
func WithSuffix(key, suffix string) string {
	dir, file := path.Split(key)
	ext := path.Ext(file)
	base := strings.TrimSuffix(file, ext)
	if base == "" {
		// dotfile such as ".env": treat the whole name as the base
		base, ext = file, ""
	}
	return dir + base + "-" + suffix + ext
}

func relocateErr(dst Locator, err error) error {
	return newError("relocate", dst.Bucket, dst.Key, fmt.Errorf("%w: %w", ErrRelocationFailed, err))
}
