package database

import (
	"context"
	"io/fs"
	"testing"

	"smartcity-orders/internal/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)

	assert.Contains(t, files, "migrations/000001_create_orders.up.sql")
	assert.Contains(t, files, "migrations/000001_create_orders.down.sql")
	assert.Contains(t, files, "migrations/000002_create_outbox.up.sql")
	assert.Contains(t, files, "migrations/000002_create_outbox.down.sql")
}

func TestNewPostgresPool_InvalidDSN(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), config.PostgresConfig{DSN: "://not a dsn", MaxConns: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse postgres dsn")
}
