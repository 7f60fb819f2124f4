// Package storage persists JSON documents in named collections and builds the
// actor, busy-interval and report repositories on top of them.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// Collections is a keyed JSON document store. Documents are encoded with encoding/json.
type Collections interface {
	Get(ctx context.Context, collection, key string, dst any) error
	Put(ctx context.Context, collection, key string, doc any) error
	Delete(ctx context.Context, collection, key string) error
	// List calls fn for every document in key order; a non-nil error from fn stops it.
	List(ctx context.Context, collection string, fn func(key string, raw []byte) error) error
}
