package credentials

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophcheck/internal/cryptox"
)

const sealSalt = "gophcheck/credentials/v1"

// Sealed encrypts blobs before they reach the wrapped repository. Each
// blob is bound to its user id, so a row copied to another user fails to
// open.
type Sealed struct {
	Repository
	key []byte
}

// NewSealed derives the sealing key from secret. The same secret must be
// used across restarts or stored credentials become unreadable.
func NewSealed(inner Repository, secret string) *Sealed {
	return &Sealed{
		Repository: inner,
		key:        cryptox.DeriveKey([]byte(secret), []byte(sealSalt)),
	}
}

func (s *Sealed) Save(ctx context.Context, userID string, blob []byte) error {
	sealed, err := cryptox.Seal(s.key, blob, []byte(userID))
	if err != nil {
		return fmt.Errorf("seal credential: %w", err)
	}
	return s.Repository.Save(ctx, userID, sealed)
}

func (s *Sealed) Load(ctx context.Context, userID string) ([]byte, error) {
	sealed, err := s.Repository.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	blob, err := cryptox.Open(s.key, sealed, []byte(userID))
	if err != nil {
		return nil, fmt.Errorf("open credential: %w", err)
	}
	return blob, nil
}
