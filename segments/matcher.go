/*
matcher.go - Catalog matching against a resolved segment profile

ALGORITHM:
  For each of the six dimensions, in SEG_ID order:
    1. Skip the dimension if the profile has no cluster value for it
       (a null segment must never match anything, including entries whose
       own cluster id happens to be null)
    2. One indexed catalog lookup for (kind, dimension, cluster)
    3. Union into the result, de-duplicating by catalog entry ID

  The per-dimension loop replaces the six-way OR disjunction the original
  data layer used: each branch is an indexed lookup and the skip-on-absent
  rule is explicit instead of hiding in SQL predicate short-circuiting.

ELIGIBILITY:
  Minors (age present and < 18) only receive entries whose eligibility code
  permits minors. An absent age applies no filter.

PROJECTION:
  Matched entries are rewritten before leaving: SEG_ID becomes the dimension
  column name, and the entry's own ID and CLUS_ID are dropped.
*/
package segments

import (
	"context"
	"fmt"
)

// Matcher joins segment profiles against the catalog.
type Matcher struct {
	catalog Catalog
}

// NewMatcher creates a matcher over the given catalog.
func NewMatcher(catalog Catalog) *Matcher {
	return &Matcher{catalog: catalog}
}

// Match collects every catalog entry of the requested kind matching any of
// the profile's segment values. An empty result is returned as an empty
// slice, never nil and never an error.
func (m *Matcher) Match(ctx context.Context, profile *Profile, kind CatalogKind) ([]Recommendation, error) {
	if profile == nil {
		return nil, fmt.Errorf("match %s: %w", kind, ErrClientNotFound)
	}

	minor := profile.Minor()
	seen := make(map[string]bool)
	results := []Recommendation{}

	for _, dim := range Dimensions {
		cluster, ok := profile.Values[dim]
		if !ok {
			continue // null segment: no match possible
		}

		entries, err := m.catalog.Entries(ctx, kind, dim, cluster)
		if err != nil {
			return nil, fmt.Errorf("match %s on %s: %w", kind, dim.Column(), err)
		}

		for _, e := range entries {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true

			if minor && !e.Elig.PermitsMinors() {
				continue
			}

			results = append(results, Recommendation{
				Segment: e.SegID.Column(),
				Prod:    e.Prod,
				Elig:    e.Elig,
				Descr:   e.Descr,
				Link:    e.Link,
			})
		}
	}

	return results, nil
}
