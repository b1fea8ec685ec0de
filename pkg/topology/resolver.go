// Package topology resolves the storage locations reachable in a node's
// network and caches the result for the current cycle.
//
// The cache is keyed by network identity, the *types.Network pointer of the
// master, not by its contents. Once a network is resolved, later resolutions
// in the same cycle return the same slice even if connectivity changed in the
// meantime. The cycle driver calls Clear once per cycle.
//
// A Resolver is not safe for concurrent use; see package cycle.
package topology

import (
	"corenet/pkg/metrics"
	"corenet/pkg/types"

	"go.uber.org/zap"
)

// Resolver resolves networks to ordered storage locations.
type Resolver struct {
	cache   map[*types.Network][]types.Location
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(logger *zap.Logger) *Resolver {
	return NewWithMetrics(logger, nil)
}

func NewWithMetrics(logger *zap.Logger, m *metrics.Metrics) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		cache:   make(map[*types.Network][]types.Location),
		logger:  logger,
		metrics: m,
	}
}

// Resolve returns the storage locations of node's network in peer order.
// Nodes without a master have no network and resolve to an empty list.
func (r *Resolver) Resolve(node types.Node) []types.Location {
	if node == nil {
		return []types.Location{}
	}
	master := node.Master()
	if master == nil {
		return []types.Location{}
	}

	network := master.Network()
	if network == nil {
		return []types.Location{}
	}

	if locations, ok := r.cache[network]; ok {
		r.metrics.CacheHit()
		return locations
	}

	locations := make([]types.Location, 0, len(network.Peers))
	for _, peer := range network.Peers {
		if peer == nil {
			continue
		}
		if loc, ok := peer.Location(); ok {
			locations = append(locations, loc)
		}
	}

	r.cache[network] = locations
	r.metrics.CacheMiss(len(r.cache))

	r.logger.Debug("Resolved network",
		zap.String("master", string(master.ID())),
		zap.Int("peers", len(network.Peers)),
		zap.Int("locations", len(locations)))

	return locations
}

// Clear drops every cached network. It must not run during a resolution.
func (r *Resolver) Clear() {
	if len(r.cache) > 0 {
		r.logger.Debug("Clearing network cache", zap.Int("entries", len(r.cache)))
	}
	clear(r.cache)
	r.metrics.CacheCleared()
}

// Len returns the number of networks resolved in the current cycle.
func (r *Resolver) Len() int {
	return len(r.cache)
}
