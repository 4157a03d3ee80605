package clients_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vantage/client-engine/clients"
)

func TestCache_AddIsInsertIfAbsent(t *testing.T) {
	// GIVEN: An id already cached
	// WHEN: Adding a different record under the same id
	// THEN: The first entry wins; both writers computed from the same
	//       immutable store, so this only matters for determinism

	cache := clients.NewCache()
	cache.Add("client-1", clients.Record{"V": int64(1)})
	cache.Add("client-1", clients.Record{"V": int64(2)})

	rec, ok := cache.Get("client-1")
	assert.True(t, ok)
	assert.Equal(t, int64(1), rec["V"])
}

func TestCache_GetReturnsCopies(t *testing.T) {
	cache := clients.NewCache()
	cache.Add("client-1", clients.Record{"V": int64(1)})

	a, _ := cache.Get("client-1")
	a["V"] = int64(42)

	b, _ := cache.Get("client-1")
	assert.Equal(t, int64(1), b["V"])
}

func TestCache_ConcurrentFill(t *testing.T) {
	// Parallel misses for overlapping ids must not race. Run with -race.

	cache := clients.NewCache()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("client-%d", n%10)
			cache.Add(id, clients.Record{"ID": id})
			cache.Get(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, cache.Len())
}
