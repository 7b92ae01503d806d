package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// S3 is the ObjectStore over Amazon S3.
type S3 struct {
	client S3API
}

var _ ObjectStore = (*S3)(nil)

func NewS3(client S3API) *S3 {
	return &S3{client: client}
}

func (s *S3) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	if bucket == "" || srcKey == "" || dstKey == "" {
		return newError("copy", bucket, srcKey, ErrInvalidInput).WithMessage("bucket and keys are required")
	}
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(bucket, srcKey)),
	})
	if err != nil {
		if isNotFound(err) {
			return newError("copy", bucket, srcKey, ErrObjectNotFound)
		}
		return newError("copy", bucket, srcKey, err)
	}
	return nil
}

func (s *S3) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if bucket == "" || key == "" {
		return false, newError("exists", bucket, key, ErrInvalidInput).WithMessage("bucket and key are required")
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, newError("exists", bucket, key, err)
	}
	return true, nil
}

// copySource renders bucket/key with each key segment URL-escaped.
func copySource(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return bucket + "/" + strings.Join(parts, "/")
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	// HEAD responses carry no body, so the code sometimes only survives in the message.
	msg := err.Error()
	return strings.Contains(msg, "NotFound") || strings.Contains(msg, "NoSuchKey")
}
