package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/nulzo/model-router-api/internal/cache"
	"github.com/nulzo/model-router-api/internal/cache/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetThenGet(t *testing.T) {
	c := memory.New()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []string{"a", "b"}, time.Minute))

	var out []string
	require.NoError(t, c.Get(ctx, "k", &out))
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestCache_GetMissingKeyReturnsErrNotFound(t *testing.T) {
	c := memory.New()
	var out string
	err := c.Get(context.Background(), "missing", &out)
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestCache_EntryExpiresAfterTTL(t *testing.T) {
	c := memory.New()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Millisecond))

	time.Sleep(5 * time.Millisecond)

	var out string
	err := c.Get(ctx, "k", &out)
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestCache_Delete(t *testing.T) {
	c := memory.New()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	var out string
	assert.ErrorIs(t, c.Get(ctx, "k", &out), cache.ErrNotFound)
}
