// Package memory provides in-memory store implementations (for testing/dev).
package memory

import (
	"context"
	"sync"

	"github.com/vantage/client-engine/clients"
	"github.com/vantage/client-engine/segments"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store implements segments.ProfileStore, segments.Catalog, and
// clients.Store over plain maps.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*segments.Profile
	records  map[string]clients.Record
	catalog  map[catalogKey][]segments.Entry
}

type catalogKey struct {
	Kind    segments.CatalogKind
	Dim     segments.Dimension
	Cluster int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		profiles: make(map[string]*segments.Profile),
		records:  make(map[string]clients.Record),
		catalog:  make(map[catalogKey][]segments.Entry),
	}
}

// AddClient registers a client profile and, optionally, its full record.
func (m *Store) AddClient(profile *segments.Profile, record clients.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[profile.ClientID] = profile
	if record != nil {
		m.records[profile.ClientID] = record.Clone()
	}
}

// AddEntry registers a catalog entry under its (kind, dimension, cluster) key.
func (m *Store) AddEntry(kind segments.CatalogKind, e segments.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := catalogKey{Kind: kind, Dim: e.SegID, Cluster: e.ClusID}
	m.catalog[k] = append(m.catalog[k], e)
}

// Profile returns the client's segment profile, or (nil, nil) when unknown.
func (m *Store) Profile(_ context.Context, clientID string) (*segments.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[clientID]
	if !ok {
		return nil, nil
	}

	cp := &segments.Profile{
		ClientID: p.ClientID,
		Values:   make(map[segments.Dimension]int, len(p.Values)),
	}
	if p.Age != nil {
		age := *p.Age
		cp.Age = &age
	}
	for d, v := range p.Values {
		cp.Values[d] = v
	}
	return cp, nil
}

// Entries returns the catalog entries registered under the key.
func (m *Store) Entries(_ context.Context, kind segments.CatalogKind, dim segments.Dimension, cluster int) ([]segments.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.catalog[catalogKey{Kind: kind, Dim: dim, Cluster: cluster}]
	out := make([]segments.Entry, len(src))
	copy(out, src)
	return out, nil
}

// Exists reports whether a profile is registered for the id.
func (m *Store) Exists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.profiles[id]
	return ok, nil
}

// Get returns the client's full record, or (nil, nil) when unknown.
func (m *Store) Get(_ context.Context, id string) (clients.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}
