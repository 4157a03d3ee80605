/*
Package clients provides client record lookup with a process-wide cache.

PURPOSE:
  Existence checks and full-record fetches by client id. This is the basis
  for authentication-by-id and profile serving. Records are loaded once by an
  offline batch job and never mutated afterwards, so the cache needs no TTL:
  staleness cannot occur, and invalidation is explicit only.

CACHE SEMANTICS:
  - Populated lazily on first successful fetch
  - Insert-if-absent: racing fills for the same id both compute the same
    value from the immutable store, so last-write-wins is safe
  - Returned records are deep copies; mutating a caller's copy never affects
    subsequently returned copies

SEE ALSO:
  - cache.go: The concurrency-safe map
  - segments/errors.go: Shared error taxonomy
*/
package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/vantage/client-engine/segments"
)

// Record is a full client row keyed by column name. Values are the scalar
// types produced by the database driver.
type Record map[string]any

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		if b, ok := v.([]byte); ok {
			cp := make([]byte, len(b))
			copy(cp, b)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// Store is the persistence interface the service reads from. Get returns
// (nil, nil) when no record exists for the id.
type Store interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (Record, error)
}

// Service performs client lookups, serving repeated fetches from the cache.
type Service struct {
	store Store
	cache *Cache
}

// NewService creates a lookup service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, cache: NewCache()}
}

// Exists reports whether a client record exists for the id, without
// materializing the record.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, segments.ErrEmptyClientID
	}
	ok, err := s.store.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check client %q: %w", id, err)
	}
	return ok, nil
}

// Fetch returns the complete record for the id, from cache when warm. The
// returned record is always an independent copy.
func (s *Service) Fetch(ctx context.Context, id string) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, segments.ErrEmptyClientID
	}

	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch client %q: %w", id, err)
	}
	if rec == nil {
		return nil, &segments.ClientNotFoundError{ID: id}
	}

	s.cache.Add(id, rec)
	return rec.Clone(), nil
}

// Invalidate drops the cached record for one client id, if present.
func (s *Service) Invalidate(id string) {
	s.cache.Invalidate(id)
}

// InvalidateAll drops every cached record.
func (s *Service) InvalidateAll() {
	s.cache.InvalidateAll()
}

// CachedCount returns the number of records currently cached.
func (s *Service) CachedCount() int {
	return s.cache.Len()
}

// CachedIDs returns the client ids currently cached, in no particular order.
func (s *Service) CachedIDs() []string {
	return s.cache.Keys()
}
