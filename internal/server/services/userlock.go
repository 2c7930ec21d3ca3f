package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophcheck/internal/common"
	"golang.org/x/sync/semaphore"
)

// userLocks hands out one exclusive lease per user. Entries are dropped
// when nobody holds or waits for them.
type userLocks struct {
	mu     sync.Mutex
	leases map[string]*userLease
}

type userLease struct {
	sem  *semaphore.Weighted
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{leases: make(map[string]*userLease)}
}

// Acquire blocks until the user's lease is free or ctx is done.
func (l *userLocks) Acquire(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	lease, ok := l.leases[userID]
	if !ok {
		lease = &userLease{sem: semaphore.NewWeighted(1)}
		l.leases[userID] = lease
	}
	lease.refs++
	l.mu.Unlock()

	if err := lease.sem.Acquire(ctx, 1); err != nil {
		l.drop(userID, lease)
		return nil, fmt.Errorf("%w: %w", common.ErrBusy, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			lease.sem.Release(1)
			l.drop(userID, lease)
		})
	}, nil
}

func (l *userLocks) drop(userID string, lease *userLease) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lease.refs--
	if lease.refs == 0 {
		delete(l.leases, userID)
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.leases)
}
