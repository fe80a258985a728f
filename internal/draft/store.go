// Package draft persists the serialized chat session snapshot so an
// in-progress conversation survives a client restart.
package draft

import (
	"context"
)

// Store is a single-slot durable byte store. One controller instance owns
// the slot at a time; concurrent writers are out of scope and resolve
// last-write-wins.
type Store interface {
	// Save overwrites the slot with data.
	Save(ctx context.Context, data []byte) error

	// Load returns the stored snapshot, or (nil, nil) when the slot is
	// empty.
	Load(ctx context.Context) ([]byte, error)

	// Clear removes the slot contents.
	Clear(ctx context.Context) error

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Close closes the backing database.
	Close() error
}
