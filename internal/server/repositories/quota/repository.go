// Package quota persists the per-user count of checks performed with the
// current credential.
package quota

import "context"

// Repository stores one counter per user. A user with no row has done zero
// checks. Increment must be atomic for a single user.
type Repository interface {
	Get(ctx context.Context, userID string) (int, error)
	Increment(ctx context.Context, userID string, n int) (int, error)
	Reset(ctx context.Context, userID string) error
}
