package session

import "context"

// Storage is the persistence port for session blobs. One serialized blob
// per session key; implementations do not interpret the contents.
type Storage interface {
	// Load returns the blob for a session, or ErrSessionNotFound.
	Load(ctx context.Context, id string) ([]byte, error)
	// Save overwrites the blob for a session.
	Save(ctx context.Context, id string, blob []byte) error
	// Delete removes the blob. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}
