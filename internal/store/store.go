// Package store defines the persistence interface for delivered
// announcements and its SQLite implementation.
package store

import (
	"context"
	"fmt"

	"release_relay/internal/model"
)

// SeenStore answers "was this announcement delivered before?" and
// records new deliveries. Implementations must be safe for concurrent
// use across distinct ids, and MarkSeen must be idempotent: recording
// an id that is already present is a no-op, not an error.
type SeenStore interface {
	Has(ctx context.Context, id string) (bool, error)
	MarkSeen(ctx context.Context, entry model.SeenEntry) error
	Close() error
}

// UnavailableError reports a store backend failure. A caller that sees
// this on MarkSeen must not treat the announcement as delivered.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
