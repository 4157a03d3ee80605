package segments

import (
	"context"
	"fmt"
	"strings"
)

// Resolver reads a client's segment profile from the backing store.
type Resolver struct {
	store ProfileStore
}

// NewResolver creates a resolver over the given store.
func NewResolver(store ProfileStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve fetches the client's age and all six segment values in a single
// logical read. A blank id is rejected before the store is consulted; an
// unknown id yields ErrClientNotFound.
func (r *Resolver) Resolve(ctx context.Context, clientID string) (*Profile, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, ErrEmptyClientID
	}

	profile, err := r.store.Profile(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("resolve segments for %q: %w", clientID, err)
	}
	if profile == nil {
		return nil, &ClientNotFoundError{ID: clientID}
	}

	return profile, nil
}
