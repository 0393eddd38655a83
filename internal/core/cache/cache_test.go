package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name string `json:"name"`
}

func TestNewWithoutAddrIsNil(t *testing.T) {
	assert.Nil(t, New("", "", 0))
}

func TestNilCacheLoadsThrough(t *testing.T) {
	var c *Cache
	calls := 0
	load := func(context.Context) (*profile, error) {
		calls++
		return &profile{Name: "Ana"}, nil
	}
	for range 2 {
		p, err := GetOrLoadJSON(c, context.Background(), "user:1", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, "Ana", p.Name)
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, c.Invalidate(context.Background(), "user:1"))
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}

func TestNilCachePropagatesError(t *testing.T) {
	var c *Cache
	boom := errors.New("boom")
	_, err := c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestDecode(t *testing.T) {
	p, err := decode[profile]([]byte(`{"name":"Bia"}`))
	require.NoError(t, err)
	assert.Equal(t, "Bia", p.Name)

	p, err = decode[profile]([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = decode[profile]([]byte("{broken"))
	assert.Error(t, err)
}
