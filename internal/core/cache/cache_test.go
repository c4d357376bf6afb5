package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCache_LoadsThrough(t *testing.T) {
	var c *Cache
	calls := 0
	load := func(context.Context) ([]int, error) {
		calls++
		return []int{1, 2, 3}, nil
	}
	for i := 0; i < 2; i++ {
		got, err := GetOrLoadJSON(c, context.Background(), "k", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, got)
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, c.Invalidate(context.Background(), "k"))
	assert.NoError(t, c.Close())
}

func TestNew_EmptyAddrDisabled(t *testing.T) {
	assert.Nil(t, New("", "", 0))
}

func TestGetOrLoadJSON_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := GetOrLoadJSON(nil, context.Background(), "k", time.Minute, func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestNilCache_Generation(t *testing.T) {
	var c *Cache
	assert.Equal(t, int64(0), c.Generation(context.Background(), "tours"))
	assert.NoError(t, c.Bump(context.Background(), "tours"))
}
