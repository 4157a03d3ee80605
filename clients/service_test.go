package clients_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage/client-engine/clients"
	"github.com/vantage/client-engine/segments"
	"github.com/vantage/client-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*clients.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return clients.NewService(store), store
}

func addClient(store *memory.Store, id string, record clients.Record) {
	store.AddClient(&segments.Profile{ClientID: id, Values: map[segments.Dimension]int{}}, record)
}

// =============================================================================
// LOOKUP TESTS
// =============================================================================

func TestService_ExistsAndFetch(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	addClient(store, "client-1", clients.Record{"ID": "client-1", "GPI_AGE": int64(30)})

	ok, err := svc.Exists(ctx, "client-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, "client-2")
	require.NoError(t, err)
	assert.False(t, ok)

	rec, err := svc.Fetch(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, "client-1", rec["ID"])
}

func TestService_FetchUnknown(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Fetch(context.Background(), "ghost")
	assert.ErrorIs(t, err, segments.ErrClientNotFound)
}

func TestService_EmptyID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Exists(ctx, "")
	assert.ErrorIs(t, err, segments.ErrEmptyClientID)

	_, err = svc.Fetch(ctx, "  ")
	assert.ErrorIs(t, err, segments.ErrEmptyClientID)
}

// =============================================================================
// CACHE TESTS
// =============================================================================

func TestService_FetchIdempotent(t *testing.T) {
	// GIVEN: A stored record
	// WHEN: Fetching twice (cache cold, then warm)
	// THEN: Both fetches compare equal value-for-value

	svc, store := newTestService(t)
	ctx := context.Background()

	addClient(store, "client-1", clients.Record{"ID": "client-1", "DEP_TOTAL_BALANCE_AMT": 120.50})

	cold, err := svc.Fetch(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.CachedCount())

	warm, err := svc.Fetch(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, cold, warm)
}

func TestService_CallerMutationDoesNotLeak(t *testing.T) {
	// GIVEN: A cached record
	// WHEN: The caller mutates its copy
	// THEN: Subsequent fetches are unaffected

	svc, store := newTestService(t)
	ctx := context.Background()

	addClient(store, "client-1", clients.Record{"ID": "client-1", "GPI_AGE": int64(30)})

	first, err := svc.Fetch(ctx, "client-1")
	require.NoError(t, err)
	first["GPI_AGE"] = int64(99)
	first["INJECTED"] = true

	second, err := svc.Fetch(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), second["GPI_AGE"])
	assert.NotContains(t, second, "INJECTED")
}

func TestService_Invalidate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	addClient(store, "client-1", clients.Record{"ID": "client-1"})
	addClient(store, "client-2", clients.Record{"ID": "client-2"})

	_, err := svc.Fetch(ctx, "client-1")
	require.NoError(t, err)
	_, err = svc.Fetch(ctx, "client-2")
	require.NoError(t, err)
	require.Equal(t, 2, svc.CachedCount())

	svc.Invalidate("client-1")
	assert.Equal(t, 1, svc.CachedCount())
	assert.Equal(t, []string{"client-2"}, svc.CachedIDs())

	svc.InvalidateAll()
	assert.Equal(t, 0, svc.CachedCount())
}
