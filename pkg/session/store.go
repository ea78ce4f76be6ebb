package session

import "context"

// Store persists a single Session.
//
// Save replaces whatever was stored before, so a stale profile picture never
// survives a Save without one. Writes are last-writer-wins.
type Store interface {
	// Load returns the stored session. ErrNotFound when nothing is stored,
	// ErrIncomplete (with the partial session) when a required key is missing.
	Load(ctx context.Context) (Session, error)

	// Get returns a single stored value by key.
	Get(ctx context.Context, key string) (string, error)

	// Save validates s and replaces the stored session with it.
	Save(ctx context.Context, s Session) error

	// Clear removes every key. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
