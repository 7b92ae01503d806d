// Package store is the item-store abstraction the finalisation pipeline writes
// through: keyed tables with optional secondary indexes, conditional writes and
// batch puts that may report an unprocessed subset.
package store

import "context"

// MaxBatchSize is the largest number of items a single BatchPut accepts.
const MaxBatchSize = 25

// Item is one record. Values are JSON-shaped: string, float64, bool, nil,
// map[string]any or []any.
type Item map[string]any

// Key identifies an item by its partition key and optional sort key values.
type Key map[string]any

// Index describes a secondary index.
type Index struct {
	Name         string
	PartitionKey string
	SortKey      string
}

// Schema describes a table's primary key and its secondary indexes.
type Schema struct {
	Table        string
	PartitionKey string
	SortKey      string
	Indexes      []Index
}

// KeyOf extracts the primary key of item according to s.
func (s Schema) KeyOf(item Item) Key {
	k := Key{s.PartitionKey: item[s.PartitionKey]}
	if s.SortKey != "" {
		k[s.SortKey] = item[s.SortKey]
	}
	return k
}

// Index returns the named index, or the table's own key when name is empty.
func (s Schema) Index(name string) (Index, bool) {
	if name == "" {
		return Index{PartitionKey: s.PartitionKey, SortKey: s.SortKey}, true
	}
	for _, idx := range s.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

// UpdateInput is a field-level update. Set and Remove may both be used.
type UpdateInput struct {
	Set       map[string]any
	Remove    []string
	Condition Condition
}

// QueryInput selects all items sharing a partition key value, on the table
// itself or on one of its indexes.
type QueryInput struct {
	Table      string
	Index      string
	KeyName    string
	KeyValue   any
	Limit      int
	StartToken string
}

// Page is one page of query results. NextToken is empty on the last page.
type Page struct {
	Items     []Item
	NextToken string
}

// ItemStore is implemented by every backend.
type ItemStore interface {
	Get(ctx context.Context, table string, key Key) (Item, error)
	// Put writes item, replacing any existing one. A non-nil cond is evaluated
	// against the existing item and ErrConditionFailed is returned when false.
	Put(ctx context.Context, table string, item Item, cond Condition) error
	// Update applies in to the item at key, creating it if absent, and returns
	// the new image.
	Update(ctx context.Context, table string, key Key, in UpdateInput) (Item, error)
	Query(ctx context.Context, in QueryInput) (Page, error)
	// BatchPut writes up to MaxBatchSize items and returns the subset the
	// backend did not accept. Callers resubmit it.
	BatchPut(ctx context.Context, table string, items []Item) ([]Item, error)
}
