package store

import "errors"

var (
	ErrNotFound             = errors.New("store: item not found")
	ErrConditionFailed      = errors.New("store: condition check failed")
	ErrBatchTooLarge        = errors.New("store: batch exceeds maximum size")
	ErrBatchRetriesExceeded = errors.New("store: batch write exceeded retries")
	ErrUnknownTable         = errors.New("store: unknown table")
	ErrUnknownIndex         = errors.New("store: unknown index")
	ErrInvalidToken         = errors.New("store: invalid continuation token")
)

// ErrMissingKey is returned when an item lacks a non-empty primary key value.
var ErrMissingKey = errors.New("store: missing primary key attribute")
