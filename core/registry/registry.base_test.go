package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry[int]()

	isNew, err := r.Register("counter", 1)
	require.NoError(t, err)
	assert.True(t, isNew)

	// Ghi đè cùng key
	isNew, err = r.Register("counter", 2)
	require.NoError(t, err)
	assert.False(t, isNew)

	v, exists := r.Get("counter")
	assert.True(t, exists)
	assert.Equal(t, 2, v)

	_, exists = r.Get("missing")
	assert.False(t, exists)
}

func TestRegistry_RegisterEmptyName(t *testing.T) {
	r := NewRegistry[string]()
	_, err := r.Register("", "x")
	assert.Error(t, err)
}

func TestRegistry_GetOrCreate(t *testing.T) {
	r := NewRegistry[string]()

	created := 0
	v, err := r.GetOrCreate("key", func() (string, error) {
		created++
		return "value", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	// Lần hai không gọi creator
	v, err = r.GetOrCreate("key", func() (string, error) {
		created++
		return "other", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, created)
}

func TestRegistry_GetOrCreateError(t *testing.T) {
	r := NewRegistry[string]()
	_, err := r.GetOrCreate("key", func() (string, error) {
		return "", errors.New("boom")
	})
	assert.Error(t, err)

	_, exists := r.Get("key")
	assert.False(t, exists)
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry[int]()
	_, _ = r.Register("a", 1)

	cleaned := false
	deleted, err := r.Clear("a", func(v int) error {
		cleaned = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.True(t, cleaned)

	deleted, err = r.Clear("a", nil)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRegistry_ClearAll(t *testing.T) {
	r := NewRegistry[int]()
	_, _ = r.Register("a", 1)
	_, _ = r.Register("b", 2)

	count, err := r.ClearAll(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, exists := r.Get("a")
	assert.False(t, exists)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry[int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = r.Register("shared", n)
			_, _ = r.Get("shared")
		}(i)
	}
	wg.Wait()

	_, exists := r.Get("shared")
	assert.True(t, exists)
}
