package biz

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressStoreSetGet(t *testing.T) {
	store := NewProgressStore()

	store.Set("a-1", 0.01)
	assert.Equal(t, 0.01, store.Get("a-1", 0))

	store.Set("a-1", 0.5)
	assert.Equal(t, 0.5, store.Get("a-1", 0))
}

func TestProgressStoreGetMissingReturnsDefault(t *testing.T) {
	store := NewProgressStore()

	assert.Equal(t, -2.0, store.Get("missing", -2.0))

	_, ok := store.Lookup("missing")
	assert.False(t, ok)
}

func TestProgressStoreDelete(t *testing.T) {
	store := NewProgressStore()

	store.Set("a-1", 1.0)
	store.Delete("a-1")

	_, ok := store.Lookup("a-1")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestProgressStoreFailedMarker(t *testing.T) {
	store := NewProgressStore()

	store.Set("a-1", ProgressFailed)
	v, ok := store.Lookup("a-1")
	assert.True(t, ok)
	assert.Equal(t, ProgressFailed, v)
}

func TestProgressStoreConcurrentAccess(t *testing.T) {
	store := NewProgressStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			store.Set("job", float64(n)/50)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.Get("job", 0)
		}()
	}
	wg.Wait()

	v := store.Get("job", -1)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 1.0)
}
