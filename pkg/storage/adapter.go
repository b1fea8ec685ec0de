package storage

import (
	"corenet/pkg/types"
)

// Wrapped is the uniform view of a storage location used by requests.
type Wrapped interface {
	// CountItems records matching units in the request without removing them.
	CountItems(req *types.Request) []types.Resource
	// ExtractItems removes matching units up to the request's remaining
	// capacity and returns them.
	ExtractItems(req *types.Request) []types.Resource
	// Node is the network node sited on the location.
	Node() types.Node
	// Location is the wrapped storage location.
	Location() types.Location
	// Owner is the entity occupying the location, or nil.
	Owner() any
}

// InventoryAdapter wraps an Inventory. Every slot that contributes to a
// request yields its own stack, so one match may come back as several units.
type InventoryAdapter struct {
	inv      *Inventory
	node     types.Node
	location types.Location
	owner    any
}

func NewInventoryAdapter(inv *Inventory, loc types.Location, node types.Node, owner any) *InventoryAdapter {
	return &InventoryAdapter{
		inv:      inv,
		node:     node,
		location: loc,
		owner:    owner,
	}
}

func (a *InventoryAdapter) CountItems(req *types.Request) []types.Resource {
	return a.scan(req, false)
}

func (a *InventoryAdapter) ExtractItems(req *types.Request) []types.Resource {
	return a.scan(req, true)
}

func (a *InventoryAdapter) scan(req *types.Request, extract bool) []types.Resource {
	units := []types.Resource{}
	for i := 0; i < a.inv.Slots(); i++ {
		slot := a.inv.Slot(i)
		if slot.Quantity == 0 || !req.Matcher.Matches(slot) {
			continue
		}

		n := req.Take(slot.Quantity)
		if n == 0 {
			continue
		}
		if extract {
			a.inv.take(i, n)
			req.Extracted += n
		}
		units = append(units, slot.WithQuantity(n))
	}
	return units
}

func (a *InventoryAdapter) Node() types.Node {
	return a.node
}

func (a *InventoryAdapter) Location() types.Location {
	return a.location
}

func (a *InventoryAdapter) Owner() any {
	return a.owner
}

// Inventory returns the wrapped container.
func (a *InventoryAdapter) Inventory() *Inventory {
	return a.inv
}
