package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID    string `json:"id"`
	Total int64  `json:"total"`
}

func TestJSONRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)

	adapter, err := NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	defer adapter.Close()

	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, adapter, "order:1", sample{ID: "1", Total: 1070}, time.Minute))

	got, err := GetJSON[sample](ctx, adapter, "order:1")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
	assert.Equal(t, int64(1070), got.Total)
	assert.Equal(t, time.Minute, mr.TTL("order:1"))
}

func TestGetJSON_Miss(t *testing.T) {
	mr := miniredis.RunT(t)

	adapter, err := NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	defer adapter.Close()

	_, err = GetJSON[sample](context.Background(), adapter, "order:missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGetJSON_Corrupt(t *testing.T) {
	mr := miniredis.RunT(t)

	adapter, err := NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	defer adapter.Close()

	require.NoError(t, mr.Set("order:bad", "{not json"))

	_, err = GetJSON[sample](context.Background(), adapter, "order:bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}
