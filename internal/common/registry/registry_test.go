package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plugin-router/internal/common/errors"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := New[int]("number")
	r.Register("one", 1)
	r.Register("two", 2)
	r.Register("one", 11)

	v, err := r.Get("one")
	require.NoError(t, err)
	assert.Equal(t, 11, v)

	assert.True(t, r.IsRegistered("two"))
	assert.False(t, r.IsRegistered("three"))
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{"one", "two"}, r.Names())
}

func TestRegistry_GetMissing(t *testing.T) {
	r := New[string]("plugin")

	v, err := r.Get("ghost")
	require.Error(t, err)
	assert.Empty(t, v)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.Contains(t, err.Error(), "plugin ghost not found")
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New[int]("number")
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Register("key", i)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = r.Get("key")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.Count())
}
