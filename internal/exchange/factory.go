package exchange

import (
	"fmt"

	"arbengine/internal/models"
)

// Registry maps a PairConfig's Venue1/Venue2 to a constructed
// VenueAdapter, the AEE's lookup point at startup.
type Registry struct {
	adapters map[models.Venue]VenueAdapter
}

// NewRegistry builds an empty registry; adapters are registered with Register.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.Venue]VenueAdapter)}
}

// Register associates a venue with its adapter instance.
func (r *Registry) Register(venue models.Venue, adapter VenueAdapter) {
	r.adapters[venue] = adapter
}

// Get returns the adapter for venue, or an error if none is registered.
func (r *Registry) Get(venue models.Venue) (VenueAdapter, error) {
	adapter, ok := r.adapters[venue]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for venue %s", venue)
	}
	return adapter, nil
}
