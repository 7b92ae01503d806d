package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/planease/engine/internal/store"
	appErr "github.com/planease/engine/pkg/errors"
)

// BaseRepository defines common operations over one item-store table.
type BaseRepository[T any] interface {
	// Create writes obj only if no item with its primary key exists.
	Create(ctx context.Context, obj *T) error
	Get(ctx context.Context, key store.Key, dest *T) error
	Save(ctx context.Context, obj *T) error
	// CreateMany batch-writes objs and returns how many were accepted.
	CreateMany(ctx context.Context, objs []T) (int, error)
	// ListBy returns every item whose keyName equals value, on the table
	// key when index is empty.
	ListBy(ctx context.Context, index, keyName string, value any) ([]T, error)
	Table() string
}

type baseRepository[T any] struct {
	store  store.ItemStore
	schema store.Schema
	writer *store.BatchWriter
	entity string
}

func NewBaseRepository[T any](s store.ItemStore, schema store.Schema, policy store.RetryPolicy, entity string) BaseRepository[T] {
	return &baseRepository[T]{store: s, schema: schema, writer: store.NewBatchWriter(s, policy), entity: entity}
}

func (r *baseRepository[T]) Table() string { return r.schema.Table }

func (r *baseRepository[T]) Create(ctx context.Context, obj *T) error {
	item, err := toItem(obj)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "encode "+r.entity+" failed")
	}
	if err := r.store.Put(ctx, r.schema.Table, item, store.AttributeNotExists(r.schema.PartitionKey)); err != nil {
		return translate(err, r.entity, "create")
	}
	return nil
}

func (r *baseRepository[T]) Get(ctx context.Context, key store.Key, dest *T) error {
	item, err := r.store.Get(ctx, r.schema.Table, key)
	if err != nil {
		return translate(err, r.entity, "get")
	}
	if err := fromItem(item, dest); err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "decode "+r.entity+" failed")
	}
	return nil
}

func (r *baseRepository[T]) Save(ctx context.Context, obj *T) error {
	item, err := toItem(obj)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "encode "+r.entity+" failed")
	}
	if err := r.store.Put(ctx, r.schema.Table, item, nil); err != nil {
		return translate(err, r.entity, "save")
	}
	return nil
}

func (r *baseRepository[T]) CreateMany(ctx context.Context, objs []T) (int, error) {
	items := make([]store.Item, 0, len(objs))
	for i := range objs {
		item, err := toItem(&objs[i])
		if err != nil {
			return 0, appErr.Wrap(err, appErr.CodeInternal, "encode "+r.entity+" failed")
		}
		items = append(items, item)
	}
	n, err := r.writer.WriteAll(ctx, r.schema.Table, items)
	if err != nil {
		return n, translate(err, r.entity, "batch write")
	}
	return n, nil
}

func (r *baseRepository[T]) ListBy(ctx context.Context, index, keyName string, value any) ([]T, error) {
	var out []T
	token := ""
	for {
		page, err := r.store.Query(ctx, store.QueryInput{
			Table:      r.schema.Table,
			Index:      index,
			KeyName:    keyName,
			KeyValue:   value,
			StartToken: token,
		})
		if err != nil {
			return nil, translate(err, r.entity, "query")
		}
		for _, item := range page.Items {
			var v T
			if err := fromItem(item, &v); err != nil {
				return nil, appErr.Wrap(err, appErr.CodeInternal, "decode "+r.entity+" failed")
			}
			out = append(out, v)
		}
		if page.NextToken == "" {
			return out, nil
		}
		token = page.NextToken
	}
}

// translate maps store sentinels onto application codes, keeping the
// sentinel reachable through errors.Is.
func translate(err error, entity, op string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return appErr.Wrap(err, appErr.CodeNotFound, entity+" not found")
	case errors.Is(err, store.ErrConditionFailed):
		return appErr.Wrap(err, appErr.CodeConditionCheckFailed, fmt.Sprintf("%s %s precondition failed", op, entity))
	case errors.Is(err, store.ErrBatchRetriesExceeded):
		return appErr.Wrap(err, appErr.CodeBatchWriteExceededRetries, fmt.Sprintf("%s %s exceeded retries", op, entity))
	case errors.Is(err, store.ErrMissingKey), errors.Is(err, store.ErrInvalidToken):
		return appErr.Wrap(err, appErr.CodeInvalid, fmt.Sprintf("%s %s failed", op, entity))
	default:
		return appErr.Wrap(err, appErr.CodeInternal, fmt.Sprintf("%s %s failed", op, entity))
	}
}

func toItem(v any) (store.Item, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var item store.Item
	if err := json.Unmarshal(b, &item); err != nil {
		return nil, err
	}
	return item, nil
}

func fromItem(item store.Item, dest any) error {
	b, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}
