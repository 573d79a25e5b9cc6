package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartcity-orders/internal/core/cache"
	"smartcity-orders/internal/features/orders/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("connection refused")

func stored() *domain.Order {
	return &domain.Order{ID: "SC-1", UserID: "uid-1", Status: domain.OrderStatusConfirmed}
}

func newResolver(c *MockOrderCache, store *MockOrderRepository, synthetic bool) *LookupResolver {
	r := NewLookupResolver(c, store, LookupOptions{RetryBackoff: time.Millisecond, AllowSynthetic: synthetic})
	r.now = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestLookupResolver_CacheHit(t *testing.T) {
	ctx := context.Background()
	c, store := new(MockOrderCache), new(MockOrderRepository)
	c.On("Get", ctx, "SC-1").Return(stored(), nil).Once()

	res, err := newResolver(c, store, true).Resolve(ctx, "SC-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCache, res.Source)
	assert.False(t, res.Warning)
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

// The first lookup reads the store and fills the cache; the second is served from cache.
func TestLookupResolver_StoreThenCache(t *testing.T) {
	ctx := context.Background()
	c, store := new(MockOrderCache), new(MockOrderRepository)
	order := stored()

	c.On("Get", ctx, "SC-1").Return(nil, cache.ErrCacheMiss).Once()
	store.On("Get", ctx, "SC-1").Return(order, nil).Once()
	c.On("Set", ctx, order).Return(nil).Once()
	c.On("Get", ctx, "SC-1").Return(order, nil).Once()

	r := newResolver(c, store, true)

	first, err := r.Resolve(ctx, "SC-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStore, first.Source)

	second, err := r.Resolve(ctx, "SC-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCache, second.Source)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	c.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestLookupResolver_CacheErrorCountsAsMiss(t *testing.T) {
	ctx := context.Background()
	c, store := new(MockOrderCache), new(MockOrderRepository)
	order := stored()

	c.On("Get", ctx, "SC-1").Return(nil, errors.New("redis timeout")).Once()
	store.On("Get", ctx, "SC-1").Return(order, nil).Once()
	c.On("Set", ctx, order).Return(errors.New("redis timeout")).Once()

	res, err := newResolver(c, store, true).Resolve(ctx, "SC-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStore, res.Source)
}

func TestLookupResolver_RetriesOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("RecoversOnRetry", func(t *testing.T) {
		c, store := new(MockOrderCache), new(MockOrderRepository)
		order := stored()
		c.On("Get", ctx, "SC-1").Return(nil, cache.ErrCacheMiss).Once()
		store.On("Get", mock.Anything, "SC-1").Return(nil, errStoreDown).Once()
		store.On("Get", mock.Anything, "SC-1").Return(order, nil).Once()
		c.On("Set", ctx, order).Return(nil).Once()

		res, err := newResolver(c, store, true).Resolve(ctx, "SC-1")
		require.NoError(t, err)
		assert.Equal(t, domain.SourceStore, res.Source)
		store.AssertExpectations(t)
	})

	t.Run("RepeatedFailureIsUnavailable", func(t *testing.T) {
		c, store := new(MockOrderCache), new(MockOrderRepository)
		c.On("Get", ctx, "SC-1").Return(nil, cache.ErrCacheMiss).Once()
		store.On("Get", mock.Anything, "SC-1").Return(nil, errStoreDown).Twice()

		res, err := newResolver(c, store, true).Resolve(ctx, "SC-1")
		assert.Nil(t, res)
		assert.ErrorIs(t, err, domain.ErrLookupUnavailable)
		assert.NotErrorIs(t, err, domain.ErrOrderNotFound)
		store.AssertNumberOfCalls(t, "Get", 2)
	})
}

func TestLookupResolver_NotFound(t *testing.T) {
	ctx := context.Background()

	t.Run("SyntheticCarriesWarning", func(t *testing.T) {
		c, store := new(MockOrderCache), new(MockOrderRepository)
		c.On("Get", ctx, "SC-9").Return(nil, cache.ErrCacheMiss).Once()
		store.On("Get", mock.Anything, "SC-9").Return(nil, domain.ErrOrderNotFound).Once()

		res, err := newResolver(c, store, true).Resolve(ctx, "SC-9")
		require.NoError(t, err)
		assert.Equal(t, domain.SourceSynthetic, res.Source)
		assert.True(t, res.Warning)
		assert.Equal(t, domain.SyntheticWarning, res.WarningMessage)
		assert.Equal(t, "SC-9", res.Order.ID)
		store.AssertNumberOfCalls(t, "Get", 1)
		c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
	})

	t.Run("SyntheticDisabled", func(t *testing.T) {
		c, store := new(MockOrderCache), new(MockOrderRepository)
		c.On("Get", ctx, "SC-9").Return(nil, cache.ErrCacheMiss).Once()
		store.On("Get", mock.Anything, "SC-9").Return(nil, domain.ErrOrderNotFound).Once()

		_, err := newResolver(c, store, false).Resolve(ctx, "SC-9")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}
