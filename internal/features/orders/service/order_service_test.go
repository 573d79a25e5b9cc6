package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartcity-orders/internal/core/cache"
	"smartcity-orders/internal/features/orders/adapters"
	"smartcity-orders/internal/features/orders/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOrderService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("WritesThroughCache", func(t *testing.T) {
		repo, c := new(MockOrderRepository), new(MockOrderCache)
		updated := &domain.Order{ID: "SC-1", Status: domain.OrderStatusFulfilled}
		repo.On("UpdateStatus", ctx, "SC-1", domain.OrderStatusFulfilled).Return(updated, nil).Once()
		c.On("Set", ctx, updated).Return(nil).Once()

		got, err := NewOrderService(repo, c).UpdateStatus(ctx, "SC-1", domain.OrderStatusFulfilled)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusFulfilled, got.Status)
		repo.AssertExpectations(t)
		c.AssertExpectations(t)
		c.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("FailedWriteEvicts", func(t *testing.T) {
		repo, c := new(MockOrderRepository), new(MockOrderCache)
		updated := &domain.Order{ID: "SC-1", Status: domain.OrderStatusCancelled}
		repo.On("UpdateStatus", ctx, "SC-1", domain.OrderStatusCancelled).Return(updated, nil).Once()
		c.On("Set", ctx, updated).Return(errors.New("redis down")).Once()
		c.On("Delete", ctx, "SC-1").Return(nil).Once()

		_, err := NewOrderService(repo, c).UpdateStatus(ctx, "SC-1", domain.OrderStatusCancelled)
		require.NoError(t, err)
		c.AssertExpectations(t)
	})

	t.Run("CacheFailureIsNotFatal", func(t *testing.T) {
		repo, c := new(MockOrderRepository), new(MockOrderCache)
		repo.On("UpdateStatus", ctx, "SC-1", domain.OrderStatusCancelled).
			Return(&domain.Order{ID: "SC-1", Status: domain.OrderStatusCancelled}, nil).Once()
		c.On("Set", ctx, mock.Anything).Return(errors.New("redis down")).Once()
		c.On("Delete", ctx, "SC-1").Return(errors.New("redis down")).Once()

		_, err := NewOrderService(repo, c).UpdateStatus(ctx, "SC-1", domain.OrderStatusCancelled)
		assert.NoError(t, err)
	})

	t.Run("InvalidTransition", func(t *testing.T) {
		repo, c := new(MockOrderRepository), new(MockOrderCache)
		repo.On("UpdateStatus", ctx, "SC-1", domain.OrderStatusPending).
			Return(nil, domain.ErrInvalidTransition).Once()

		_, err := NewOrderService(repo, c).UpdateStatus(ctx, "SC-1", domain.OrderStatusPending)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
		c.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestOrderService_ListForUser(t *testing.T) {
	ctx := context.Background()
	repo, c := new(MockOrderRepository), new(MockOrderCache)
	orders := []domain.Order{{ID: "SC-2"}, {ID: "SC-1"}}
	repo.On("ListByUser", ctx, "uid-1", DefaultListLimit).Return(orders, nil).Twice()
	repo.On("ListByUser", ctx, "uid-1", 5).Return(orders[:1], nil).Once()

	svc := NewOrderService(repo, c)

	got, err := svc.ListForUser(ctx, "uid-1", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = svc.ListForUser(ctx, "uid-1", 1000)
	require.NoError(t, err)

	got, err = svc.ListForUser(ctx, "uid-1", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	repo.AssertExpectations(t)
}

// A lookup that read the store before a status change finishes after it:
// the cache must still hold the new status.
func TestOrderService_StatusChangeRacingLookup(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	redisCache, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	defer redisCache.Close()
	orderCache := adapters.NewRedisOrderCache(redisCache, 10*time.Minute)

	placed := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	before := &domain.Order{ID: "SC-1", UserID: "uid-1", Status: domain.OrderStatusConfirmed, CreatedAt: placed, UpdatedAt: placed}
	after := *before
	require.NoError(t, after.TransitionTo(domain.OrderStatusCancelled, placed.Add(time.Minute)))

	writer := new(MockOrderRepository)
	writer.On("UpdateStatus", mock.Anything, "SC-1", domain.OrderStatusCancelled).Return(&after, nil).Once()
	svc := NewOrderService(writer, orderCache)

	// The store read returns the old row, and the status change commits
	// before the lookup gets to fill the cache.
	reader := new(MockOrderRepository)
	reader.On("Get", mock.Anything, "SC-1").Run(func(mock.Arguments) {
		_, err := svc.UpdateStatus(ctx, "SC-1", domain.OrderStatusCancelled)
		require.NoError(t, err)
	}).Return(before, nil).Once()
	resolver := NewLookupResolver(orderCache, reader, LookupOptions{})

	res, err := resolver.Resolve(ctx, "SC-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStore, res.Source)

	res, err = resolver.Resolve(ctx, "SC-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCache, res.Source)
	assert.Equal(t, domain.OrderStatusCancelled, res.Order.Status)
	reader.AssertExpectations(t)
	writer.AssertExpectations(t)
}
