//go:build integration

package adapters

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"smartcity-orders/internal/core/config"
	"smartcity-orders/internal/core/database"
	"smartcity-orders/internal/features/catalog/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func TestMongoProductRepository_ConcurrentDecrement(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := tcmongo.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := database.ConnectMongo(ctx, config.MongoConfig{URI: uri, Database: "smartcity_it"})
	require.NoError(t, err)
	defer db.Client().Disconnect(ctx)

	repo := NewMongoProductRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))

	const stock, workers = 7, 25
	p := sensor(stock)
	require.NoError(t, repo.Upsert(ctx, &p))

	var ok, rejected atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.DecrementStock(ctx, "P1", 1)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(stock), ok.Load())
	assert.Equal(t, int64(workers-stock), rejected.Load())

	got, err := repo.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Stock)
	assert.Equal(t, domain.ProductStatusOutOfStock, got.Status)

	require.NoError(t, repo.IncrementStock(ctx, "P1", 2))
	got, err = repo.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Stock)
	assert.Equal(t, domain.ProductStatusActive, got.Status)

	assert.ErrorIs(t, repo.DecrementStock(ctx, "missing", 1), domain.ErrProductNotFound)

	withdrawn := sensor(9)
	withdrawn.Status = domain.ProductStatusDiscontinued
	require.NoError(t, repo.Upsert(ctx, &withdrawn))
	assert.ErrorIs(t, repo.DecrementStock(ctx, "P1", 1), domain.ErrProductUnavailable)

	got, err = repo.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.Stock)
}
