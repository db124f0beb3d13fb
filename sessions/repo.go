package sessions

import "context"

// Store persists the single session record for this client. Implementations
// must make Save and Clear atomic: a reader sees either the old record or the
// new one, never one key from each.
//
// Only the auth session controller writes to a Store; every other component
// reads identity and credential through the controller.
type Store interface {
	// Load returns the stored record, or a zero Record if nothing is stored
	Load(ctx context.Context) (Record, error)

	// Save replaces the stored record
	Save(ctx context.Context, record Record) error

	// Clear removes both keys. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
