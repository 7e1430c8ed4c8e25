// Package kvstore provides the flat string-keyed store the ledger and usage
// mirror persist into. There is no schema versioning; readers treat malformed
// values as absent.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a flat string-keyed value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
