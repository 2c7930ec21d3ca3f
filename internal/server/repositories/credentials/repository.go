// Package credentials stores the serialized platform session of each user.
// The blob is opaque here; whoever holds it can act on the platform as that
// user, so at most one exists per user.
package credentials

import "context"

// Repository persists at most one credential blob per user.
//
// Load returns common.ErrorNotFound when the user has none. Delete of an
// absent credential is not an error.
type Repository interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Save(ctx context.Context, userID string, blob []byte) error
	Load(ctx context.Context, userID string) ([]byte, error)
	Delete(ctx context.Context, userID string) error
}
