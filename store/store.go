// Package store provides short-lived keyed storage with per-entry expiry.
//
// Three backends share the Store contract: an in-memory store with lazy
// sweeping, a Redis store and a SQLite store. Entries written with a TTL are
// never returned once their expiry instant has passed; entries written
// without one live until deleted.
package store

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-openid-client/internal/errors"
)

var (
	// ErrInvalidKey is returned when a key part is not a supported scalar.
	ErrInvalidKey = fmt.Errorf("%w: invalid store key", apperrors.ErrConfiguration)

	// ErrBackend wraps failures reported by a networked or on-disk backend.
	ErrBackend = fmt.Errorf("%w: store backend failure", apperrors.ErrTransport)
)

// Store is a keyed store with optional per-entry expiry.
type Store[V any] interface {
	// Get returns the value for key. The boolean is false when no live
	// entry exists; that is not an error.
	Get(ctx context.Context, key Key) (V, bool, error)

	// Set stores value under key. A ttl <= 0 stores the entry without
	// expiry.
	Set(ctx context.Context, key Key, value V, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// IsEmpty reports whether the store holds no live entries.
	IsEmpty(ctx context.Context) (bool, error)
}

// Taker is implemented by stores that can read and remove an entry as one
// atomic step. At most one concurrent Take of a key observes the value.
type Taker[V any] interface {
	Take(ctx context.Context, key Key) (V, bool, error)
}

// Observers are optional callbacks invoked after a mutation has been
// applied. A non-nil error is returned to the caller of Set, Delete or Take.
type Observers[V any] struct {
	OnSet    func(ctx context.Context, key Key, value V) error
	OnDelete func(ctx context.Context, key Key, previous V, existed bool) error
}

func (o Observers[V]) set(ctx context.Context, key Key, value V) error {
	if o.OnSet == nil {
		return nil
	}
	return o.OnSet(ctx, key, value)
}

func (o Observers[V]) delete(ctx context.Context, key Key, previous V, existed bool) error {
	if o.OnDelete == nil {
		return nil
	}
	return o.OnDelete(ctx, key, previous, existed)
}

func checkKey(key Key) error {
	if key.IsZero() {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return nil
}
