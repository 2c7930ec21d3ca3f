package quota

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Lifecycle(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	n, err := r.Increment(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	require.NoError(t, r.Reset(ctx, "u1"))
	n, err = r.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemory_ConcurrentIncrements(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Increment(ctx, "u1", 1)
		}()
	}
	wg.Wait()

	n, _ := r.Get(ctx, "u1")
	assert.Equal(t, 100, n)
}
