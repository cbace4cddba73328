// Package storage defines the storage capability shared by every backend
// adapter and the connection handle adapters use to own their client.
package storage

import "context"

// Store persists records of one type. Implementations are safe for concurrent
// use; a single instance serves every request for the process lifetime.
//
// Absence is not an error: Get and Update report it through their bool result
// and Delete through its bool result. Failures are *util.DomainError values of
// kind Conflict, Unavailable or Backend.
type Store[T any] interface {
	// Initialize idempotently ensures the backing table exists.
	Initialize(ctx context.Context) error
	// Create persists a new record and returns it as stored.
	Create(ctx context.Context, record T) (T, error)
	// Get returns the record with the given key, or false when absent.
	Get(ctx context.Context, id string) (T, bool, error)
	// List returns every record in the schema's declared order.
	List(ctx context.Context) ([]T, error)
	// Update replaces the mutable fields of the record with the given key.
	Update(ctx context.Context, id string, record T) (T, bool, error)
	// Delete removes the record and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
	// Close releases the connection to the backing engine.
	Close() error
}
