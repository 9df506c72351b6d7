package core

import "context"

// Store defines the contract for durable note storage.
// Adhering to this interface keeps the Manager independent of the
// underlying storage mechanism (snapshot file, SQL, memory).
type Store interface {
	// Initialize ensures the underlying storage is ready (e.g. create directories, schema migration).
	Initialize(ctx context.Context) error

	// FetchAll returns every stored note sorted by SortNotes.
	FetchAll(ctx context.Context) ([]Note, error)

	// SaveAll replaces the entire persisted set with exactly notes.
	// It is all-or-nothing: a failure leaves the previous set intact.
	SaveAll(ctx context.Context, notes []Note) error
}

// Watchable is implemented by stores that can report changes made outside the process.
type Watchable interface {
	Watch(ctx context.Context) (<-chan Event, error)
}

// Normalizer rewrites an image once, when it is attached.
type Normalizer interface {
	Normalize(img []byte) ([]byte, error)
}
