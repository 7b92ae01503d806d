package storage

import (
	"context"
	"errors"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS is the ObjectStore over Google Cloud Storage.
type GCS struct {
	client *gcs.Client
}

var _ ObjectStore = (*GCS)(nil)

// NewGCS creates a client. A non-empty endpoint points it at an emulator
// without authentication.
func NewGCS(ctx context.Context, endpoint string) (*GCS, error) {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	} else {
		opts = append(opts, option.WithScopes(gcs.ScopeReadWrite))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCS{client: client}, nil
}

func (g *GCS) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	b := g.client.Bucket(bucket)
	src := b.Object(srcKey)
	dst := b.Object(dstKey)
	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return newError("copy", bucket, srcKey, ErrObjectNotFound)
		}
		return newError("copy", bucket, srcKey, err)
	}
	return nil
}

func (g *GCS) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := g.client.Bucket(bucket).Object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, newError("exists", bucket, key, err)
	}
	return true, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
