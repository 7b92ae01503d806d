// Package storage wraps the blob store holding uploaded files. The pipeline
// only ever copies by reference and probes for existence; bytes are uploaded
// through presigned URLs elsewhere.
package storage

import "context"

// ObjectStore is implemented by the S3, GCS and in-memory backends.
type ObjectStore interface {
	// Copy duplicates srcKey to dstKey inside bucket. It returns
	// ErrObjectNotFound when the source does not exist.
	Copy(ctx context.Context, bucket, srcKey, dstKey string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// Locator addresses one object.
type Locator struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func (l Locator) String() string { return l.Bucket + "/" + l.Key }
