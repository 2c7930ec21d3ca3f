package credentials

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophcheck/internal/common"
)

// MemoryRepository keeps credentials in process memory. Blobs are copied
// on the way in and out.
type MemoryRepository struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{blobs: make(map[string][]byte)}
}

func (r *MemoryRepository) Exists(_ context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.blobs[userID]
	return ok, nil
}

func (r *MemoryRepository) Save(_ context.Context, userID string, blob []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[userID] = append([]byte(nil), blob...)
	return nil
}

func (r *MemoryRepository) Load(_ context.Context, userID string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	blob, ok := r.blobs[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (r *MemoryRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blobs, userID)
	return nil
}
