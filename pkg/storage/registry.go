package storage

import (
	"sort"
	"sync"

	"corenet/pkg/types"

	"go.uber.org/zap"
)

// Accessor turns resolved locations into adapters. Locations it cannot
// resolve are skipped.
type Accessor interface {
	Wrap(locations []types.Location) []Wrapped
}

// Siting finds the node sited on a location.
type Siting interface {
	NodeFor(loc types.Location) (types.Node, bool)
}

// Site is everything placed at one location.
type Site struct {
	Inventory *Inventory
	Node      types.Node
	Owner     any
}

// Registry tracks which container and node sit at each location. It is the
// default Accessor and Siting implementation.
type Registry struct {
	sites map[types.Location]*Site
	mu    sync.RWMutex

	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sites:  make(map[types.Location]*Site),
		logger: logger,
	}
}

// Place sites inv at loc, replacing whatever was there. node and owner may be nil.
func (r *Registry) Place(loc types.Location, inv *Inventory, node types.Node, owner any) *Site {
	r.mu.Lock()
	defer r.mu.Unlock()

	site := &Site{Inventory: inv, Node: node, Owner: owner}
	r.sites[loc] = site
	return site
}

// Remove clears loc.
func (r *Registry) Remove(loc types.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sites, loc)
}

// Lookup returns the site at loc.
func (r *Registry) Lookup(loc types.Location) (*Site, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	site, ok := r.sites[loc]
	return site, ok
}

// Locations returns every occupied location, sorted for stable output.
func (r *Registry) Locations() []types.Location {
	r.mu.RLock()
	defer r.mu.RUnlock()

	locations := make([]types.Location, 0, len(r.sites))
	for loc := range r.sites {
		locations = append(locations, loc)
	}
	sort.Slice(locations, func(i, j int) bool {
		return locations[i].String() < locations[j].String()
	})
	return locations
}

// Wrap returns one adapter per resolvable location, in input order.
func (r *Registry) Wrap(locations []types.Location) []Wrapped {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wrapped := make([]Wrapped, 0, len(locations))
	for _, loc := range locations {
		site, ok := r.sites[loc]
		if !ok || site.Inventory == nil {
			r.logger.Debug("Skipping unresolvable location", zap.Stringer("location", loc))
			continue
		}
		wrapped = append(wrapped, NewInventoryAdapter(site.Inventory, loc, site.Node, site.Owner))
	}
	return wrapped
}

// NodeFor returns the node sited on loc.
func (r *Registry) NodeFor(loc types.Location) (types.Node, bool) {
	site, ok := r.Lookup(loc)
	if !ok || site.Node == nil {
		return nil, false
	}
	return site.Node, true
}
