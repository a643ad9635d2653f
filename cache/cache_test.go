package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type section struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestMemoryRoundTripAndInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	var got []section
	assert.False(t, c.Get(ctx, KeyMenuGrouped, &got))

	want := []section{{Name: "Momos", Items: []string{"Veg", "Paneer"}}}
	require.NoError(t, c.Set(ctx, KeyMenuGrouped, want))
	require.True(t, c.Get(ctx, KeyMenuGrouped, &got))
	assert.Equal(t, want, got)

	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, c.Get(ctx, KeyMenuGrouped, &got))
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, KeyCategories, []string{"Snacks"}))

	var got []string
	assert.True(t, c.Get(ctx, KeyCategories, &got))

	now = now.Add(2 * time.Minute)
	assert.False(t, c.Get(ctx, KeyCategories, &got))
}
