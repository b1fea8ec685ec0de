package node

import (
	"fmt"
	"slices"

	"corenet/pkg/types"
)

// Spark is a network participant optionally sited on a storage location.
// A master spark owns the network; every attached spark shares the master's
// *types.Network, which is mutated in place when connectivity changes so the
// network keeps its identity.
type Spark struct {
	id       types.NodeID
	location types.Location
	sited    bool

	master  *Spark
	network *types.Network // only set on masters
}

// NewSpark creates an unattached spark that is not sited on any location.
func NewSpark(id types.NodeID) *Spark {
	return &Spark{id: id}
}

// NewSitedSpark creates an unattached spark sited on loc.
func NewSitedSpark(id types.NodeID, loc types.Location) *Spark {
	return &Spark{id: id, location: loc, sited: true}
}

// NewMaster creates a master spark. The master is the first peer of its own network.
func NewMaster(id types.NodeID) *Spark {
	s := &Spark{id: id}
	s.master = s
	s.network = &types.Network{Peers: []types.Node{s}}
	return s
}

func (s *Spark) ID() types.NodeID {
	return s.id
}

func (s *Spark) Master() types.Node {
	if s.master == nil {
		return nil
	}
	return s.master
}

func (s *Spark) Network() *types.Network {
	if s.master == nil {
		return nil
	}
	return s.master.network
}

func (s *Spark) Location() (types.Location, bool) {
	return s.location, s.sited
}

// Site places s on loc.
func (s *Spark) Site(loc types.Location) {
	s.location = loc
	s.sited = true
}

// Unsite removes s from its location. The spark stays in its network.
func (s *Spark) Unsite() {
	s.location = types.Location{}
	s.sited = false
}

// IsMaster reports whether s coordinates a network.
func (s *Spark) IsMaster() bool {
	return s.network != nil
}

// Attach connects s to master's network, appending it after the existing peers.
func (s *Spark) Attach(master *Spark) error {
	if master == nil || !master.IsMaster() {
		return fmt.Errorf("spark %s is not a master", sparkID(master))
	}
	if s.IsMaster() {
		return fmt.Errorf("spark %s is a master and cannot join another network", s.id)
	}
	if s.master == master {
		return nil
	}
	if s.master != nil {
		s.Detach()
	}

	s.master = master
	master.network.Peers = append(master.network.Peers, s)
	return nil
}

// Detach removes s from its network. Masters cannot detach.
func (s *Spark) Detach() {
	if s.master == nil || s.IsMaster() {
		return
	}
	network := s.master.network
	network.Peers = slices.DeleteFunc(network.Peers, func(n types.Node) bool {
		return n == types.Node(s)
	})
	s.master = nil
}

// Peers returns a snapshot of the sparks in s's network.
func (s *Spark) Peers() []types.Node {
	network := s.Network()
	if network == nil {
		return nil
	}
	return slices.Clone(network.Peers)
}

func (s *Spark) String() string {
	if loc, ok := s.Location(); ok {
		return fmt.Sprintf("%s(%s)", s.id, loc)
	}
	return string(s.id)
}

func sparkID(s *Spark) string {
	if s == nil {
		return "<nil>"
	}
	return string(s.id)
}
