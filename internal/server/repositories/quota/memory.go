package quota

import (
	"context"
	"sync"
)

// MemoryRepository keeps counters in process memory.
type MemoryRepository struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{counts: make(map[string]int)}
}

func (r *MemoryRepository) Get(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[userID], nil
}

func (r *MemoryRepository) Increment(_ context.Context, userID string, n int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[userID] += n
	return r.counts[userID], nil
}

func (r *MemoryRepository) Reset(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counts, userID)
	return nil
}
