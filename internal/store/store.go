// Package store defines the key-value contract backing the determinism cache.
package store

import (
	"context"
	"errors"
)

// KV provides content-addressed key-value operations.
// SetNX must be atomic: concurrent writers for the same key are idempotent
// because values are content-addressed (any winner stores identical bytes).
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
}

// Sentinel errors for store operations.
var (
	ErrKeyNotFound = errors.New("store: key not found")
)

// Op constants give error context without leaking backend specifics.
const (
	OpGet   = "GET"
	OpSet   = "SET"
	OpSetNX = "SETNX"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
