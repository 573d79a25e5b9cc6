package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_Exclusive(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	unlock, err := Lock(ctx, adapter, "cart-lock:u1", time.Minute)
	require.NoError(t, err)

	_, err = Lock(ctx, adapter, "cart-lock:u1", time.Minute)
	assert.ErrorIs(t, err, ErrLockBusy)

	unlock()

	unlock, err = Lock(ctx, adapter, "cart-lock:u1", time.Minute)
	require.NoError(t, err)
	unlock()
}

func TestLock_ExpiredLeaseIsNotReleasedByOldHolder(t *testing.T) {
	adapter, mr := newTestAdapter(t)
	ctx := context.Background()

	stale, err := Lock(ctx, adapter, "cart-lock:u1", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	unlock, err := Lock(ctx, adapter, "cart-lock:u1", time.Minute)
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists("cart-lock:u1"))

	unlock()
	assert.False(t, mr.Exists("cart-lock:u1"))
}

func TestLock_SerializesHolders(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	var inside, overlaps atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := Lock(ctx, adapter, "cart-lock:u1", time.Minute)
			if err != nil {
				return
			}
			if inside.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Zero(t, overlaps.Load())
}
