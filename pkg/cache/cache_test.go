package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKeyBuilder(t *testing.T) {
	assert.Equal(t, "informes_ia:t1:ventas:abc", IAKeys.Build("t1", "ventas", "abc"))
	assert.Equal(t, "informes_plantillas:t1", PlantillasKeys.Build("t1", ""))
}

func TestCacheError_IsMatchesByType(t *testing.T) {
	err := &CacheError{Type: ErrKeyNotFound.Type, Message: "key not found", Key: "x"}
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	assert.False(t, errors.Is(err, ErrCacheDisabled))
	assert.Contains(t, err.Error(), "(key: x)")
}

func TestNoopCache(t *testing.T) {
	c := NewNoopCacheService()
	ctx := context.Background()

	var dest string
	assert.True(t, errors.Is(c.Get(ctx, "k", &dest), ErrCacheDisabled))
	assert.True(t, errors.Is(c.Set(ctx, "k", "v", 0), ErrCacheDisabled))
	assert.False(t, c.Exists(ctx, "k"))
	assert.NoError(t, c.Ping(ctx))
}
