package coordinator

import (
	"fmt"
	"reflect"

	"corenet/pkg/events"
	"corenet/pkg/metrics"
	"corenet/pkg/signal"
	"corenet/pkg/storage"
	"corenet/pkg/topology"
	"corenet/pkg/types"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Coordinator runs count and extract requests across the storage locations of
// a network. It is not safe for concurrent use: every call, including
// ClearCache, must come from one execution context (see package cycle).
type Coordinator struct {
	resolver *topology.Resolver
	accessor storage.Accessor
	siting   storage.Siting
	veto     events.Veto
	metrics  *metrics.Metrics
	logger   *zap.Logger

	last Stats
}

// Stats are the accumulators of one request.
type Stats struct {
	Found     int
	Extracted int
}

// Result is the outcome of Execute.
type Result struct {
	Resources []types.Resource
	Stats     Stats
	// Vetoed is set when a subscriber cancelled the request before it started.
	Vetoed bool
}

// Total returns the number of units across the result's resources.
func (r *Result) Total() int {
	return lo.SumBy(r.Resources, func(res types.Resource) int {
		return res.Quantity
	})
}

// Hooks are the optional collaborators of a Coordinator.
type Hooks struct {
	Veto    events.Veto
	Siting  storage.Siting
	Metrics *metrics.Metrics
}

func New(accessor storage.Accessor, logger *zap.Logger) *Coordinator {
	return NewWithHooks(accessor, logger, Hooks{})
}

func NewWithHooks(accessor storage.Accessor, logger *zap.Logger, hooks Hooks) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}

	siting := hooks.Siting
	if siting == nil {
		// the default registry knows which node sits where
		if s, ok := accessor.(storage.Siting); ok {
			siting = s
		}
	}

	return &Coordinator{
		resolver: topology.NewWithMetrics(logger.Named("topology"), hooks.Metrics),
		accessor: accessor,
		siting:   siting,
		veto:     hooks.Veto,
		metrics:  hooks.Metrics,
		logger:   logger,
	}
}

// Resolver exposes the network resolver used by the coordinator.
func (c *Coordinator) Resolver() *topology.Resolver {
	return c.resolver
}

// interceptorEntry remembers the node an interceptor was last seen under.
type interceptorEntry struct {
	interceptor types.Interceptor
	node        types.Node
}

// Execute runs a request for quantity units matching m from node's network.
// quantity may be types.Unbounded to take everything matching. When extract
// is false the locations are only counted.
//
// Locations are visited in network order, so a bounded extraction drains
// earlier locations first. Every location is visited even after the request
// is satisfied so interceptors always run.
//
// An interceptor error aborts the request. Units already extracted from
// earlier locations are not put back.
func (c *Coordinator) Execute(m types.Matcher, quantity int, node types.Node, extract bool) (*Result, error) {
	result := &Result{Resources: []types.Resource{}}

	if c.veto != nil {
		evt := &events.RequestEvent{Matcher: m, Requested: quantity, Requester: node, Extract: extract}
		if c.veto(evt) {
			c.metrics.RequestVetoed()
			result.Vetoed = true
			return result, nil
		}
	}

	locations := c.resolver.Resolve(node)
	req := types.NewRequest(m, quantity)

	var wrapped []storage.Wrapped
	if len(locations) > 0 {
		wrapped = c.accessor.Wrap(locations)
	}

	var interceptors []interceptorEntry
	seen := make(map[any]int)

	for _, inv := range wrapped {
		if ic := interceptorFor(inv); ic != nil {
			invNode := inv.Node()
			err := ic.InterceptRequest(&types.Interception{
				Matcher:   m,
				Requested: quantity,
				Self:      invNode,
				Requester: node,
				Results:   &result.Resources,
				Locations: locations,
				Request:   req,
				Extract:   extract,
			})
			c.metrics.Intercepted("pre")
			if err != nil {
				c.metrics.RequestFailed()
				return nil, fmt.Errorf("interceptor at %s failed: %w", inv.Location(), err)
			}

			key := interceptorKey(ic, inv)
			if i, ok := seen[key]; ok {
				interceptors[i].node = invNode
			} else {
				seen[key] = len(interceptors)
				interceptors = append(interceptors, interceptorEntry{interceptor: ic, node: invNode})
			}
		}

		if extract {
			result.Resources = append(result.Resources, inv.ExtractItems(req)...)
		} else {
			result.Resources = append(result.Resources, inv.CountItems(req)...)
		}
	}

	for _, entry := range interceptors {
		err := entry.interceptor.InterceptRequestLast(&types.Interception{
			Matcher:   m,
			Requested: quantity,
			Self:      entry.node,
			Requester: node,
			Results:   &result.Resources,
			Locations: locations,
			Request:   req,
			Extract:   extract,
		})
		c.metrics.Intercepted("post")
		if err != nil {
			c.metrics.RequestFailed()
			return nil, fmt.Errorf("interceptor post pass failed: %w", err)
		}
	}

	result.Stats = Stats{Found: req.Found, Extracted: req.Extracted}
	c.last = result.Stats
	c.metrics.RequestDone(extract, req.Found, req.Extracted, len(wrapped))

	c.logger.Debug("Request completed",
		zap.Stringer("matcher", m),
		zap.Int("requested", quantity),
		zap.Bool("extract", extract),
		zap.Int("locations", len(wrapped)),
		zap.Int("found", req.Found),
		zap.Int("extracted", req.Extracted))

	return result, nil
}

// interceptorFor returns the interceptor sited at inv's location, checking
// the occupying entity first and the node second.
func interceptorFor(inv storage.Wrapped) types.Interceptor {
	if ic, ok := inv.Owner().(types.Interceptor); ok {
		return ic
	}
	if ic, ok := inv.Node().(types.Interceptor); ok {
		return ic
	}
	return nil
}

// interceptorKey identifies an interceptor across locations. Interceptors of
// a type that cannot be compared are told apart by location only.
func interceptorKey(ic types.Interceptor, inv storage.Wrapped) any {
	if reflect.TypeOf(ic).Comparable() {
		return ic
	}
	return inv.Location()
}

// Request is Execute returning only the resources. The statistics are kept
// for LastRequest.
func (c *Coordinator) Request(m types.Matcher, quantity int, node types.Node, extract bool) ([]types.Resource, error) {
	result, err := c.Execute(m, quantity, node, extract)
	if err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// LastRequest returns the statistics of the most recent completed request.
// Vetoed and failed requests leave it untouched.
func (c *Coordinator) LastRequest() Stats {
	return c.last
}

// CountInNetwork returns the number of units matching m in node's network.
func (c *Coordinator) CountInNetwork(m types.Matcher, node types.Node) int {
	return c.CountInLocations(m, c.resolver.Resolve(node))
}

// CountInLocations returns the number of units matching m across locations.
func (c *Coordinator) CountInLocations(m types.Matcher, locations []types.Location) int {
	return lo.Sum(lo.Values(c.LocationsWithMatchIn(m, locations)))
}

// LocationsWithMatch maps every location in node's network holding units
// matching m to the number of those units.
func (c *Coordinator) LocationsWithMatch(m types.Matcher, node types.Node) map[types.Location]int {
	return c.LocationsWithMatchIn(m, c.resolver.Resolve(node))
}

// LocationsWithMatchIn is LocationsWithMatch over an explicit location list.
// Locations without matches are left out.
func (c *Coordinator) LocationsWithMatchIn(m types.Matcher, locations []types.Location) map[types.Location]int {
	counts := make(map[types.Location]int)
	if len(locations) == 0 {
		return counts
	}
	for _, inv := range c.accessor.Wrap(locations) {
		req := types.NewRequest(m, types.Unbounded)
		inv.CountItems(req)
		if req.Found > 0 {
			counts[inv.Location()] += req.Found
		}
	}
	return counts
}

// NodeFor returns the node sited on loc.
func (c *Coordinator) NodeFor(loc types.Location) (types.Node, bool) {
	if c.siting == nil {
		return nil, false
	}
	return c.siting.NodeFor(loc)
}

// SignalStrength maps a request size to a signal level in [0, 15].
func (c *Coordinator) SignalStrength(quantity int) int {
	return signal.Strength(quantity)
}

// ClearCache forgets every resolved network. The cycle driver calls it once
// per cycle.
func (c *Coordinator) ClearCache() {
	c.resolver.Clear()
}
