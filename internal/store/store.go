// Package store defines the key-value store the simulations run against and
// its implementations: DynamoDB, an in-memory store with configurable
// propagation lag, and decorators for throttling and instrumentation.
package store

import (
	"context"
	"fmt"

	"github.com/FairForge/kvbench/internal/models"
)

// PartitionKey is the name of the hash key attribute of benchmark tables
const PartitionKey = "id"

// Request names used in errors and metrics
const (
	OpGet    = "get"
	OpPut    = "put"
	OpDelete = "delete"
	OpScan   = "scan"
)

// Store is the narrow view of a key-value table used by the simulator. The
// table is bound when the store is constructed.
type Store interface {
	// Get returns the item stored under key. A missing item is reported with
	// found == false and a nil error.
	Get(ctx context.Context, key string) (item models.BenchmarkItem, found bool, err error)
	// Put creates or overwrites the item under item.ID
	Put(ctx context.Context, item models.BenchmarkItem) error
	Delete(ctx context.Context, key string) error
	// ScanKeys returns up to limit partition keys
	ScanKeys(ctx context.Context, limit int) ([]string, error)
}

// StoreError reports a failed store request
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrapError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*StoreError); ok {
		return se
	}
	return &StoreError{Op: op, Key: key, Err: err}
}
