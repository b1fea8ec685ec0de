package storage

import (
	"maps"

	"corenet/pkg/types"
)

const (
	DefaultSlots      = 27
	DefaultStackLimit = 64
	LargeStackLimit   = 1024 // bulk containers
)

// Inventory is a slotted container. Each slot holds at most one stack of up
// to stackLimit units of one resource.
type Inventory struct {
	slots      []types.Resource
	stackLimit int
}

func NewInventory() *Inventory {
	return NewInventoryWithOptions(DefaultSlots, DefaultStackLimit)
}

// NewInventoryWithOptions creates an Inventory with custom options
func NewInventoryWithOptions(slots, stackLimit int) *Inventory {
	if slots <= 0 {
		slots = DefaultSlots
	}
	if stackLimit <= 0 {
		stackLimit = DefaultStackLimit
	}
	return &Inventory{
		slots:      make([]types.Resource, slots),
		stackLimit: stackLimit,
	}
}

// Slots returns the number of slots.
func (inv *Inventory) Slots() int {
	return len(inv.slots)
}

// StackLimit returns the per-slot cap.
func (inv *Inventory) StackLimit() int {
	return inv.stackLimit
}

// Slot returns a copy of slot i. Empty slots have zero quantity.
func (inv *Inventory) Slot(i int) types.Resource {
	slot := inv.slots[i]
	slot.Tags = maps.Clone(slot.Tags)
	return slot
}

// Insert stores r, topping up matching stacks first and then filling empty
// slots in order. It returns the quantity that did not fit.
func (inv *Inventory) Insert(r types.Resource) int {
	remaining := r.Quantity
	if remaining <= 0 {
		return 0
	}

	for i := range inv.slots {
		if remaining == 0 {
			break
		}
		slot := &inv.slots[i]
		if slot.Quantity == 0 || !sameKind(*slot, r) {
			continue
		}
		n := min(remaining, inv.stackLimit-slot.Quantity)
		if n > 0 {
			slot.Quantity += n
			remaining -= n
		}
	}

	for i := range inv.slots {
		if remaining == 0 {
			break
		}
		if inv.slots[i].Quantity != 0 {
			continue
		}
		n := min(remaining, inv.stackLimit)
		inv.slots[i] = r.WithQuantity(n)
		inv.slots[i].Tags = maps.Clone(r.Tags)
		remaining -= n
	}

	return remaining
}

// Contents returns copies of every non-empty slot in slot order.
func (inv *Inventory) Contents() []types.Resource {
	contents := []types.Resource{}
	for i, slot := range inv.slots {
		if slot.Quantity > 0 {
			contents = append(contents, inv.Slot(i))
		}
	}
	return contents
}

// Total returns the number of units matching m. A nil matcher counts everything.
func (inv *Inventory) Total(m types.Matcher) int {
	total := 0
	for _, slot := range inv.slots {
		if slot.Quantity == 0 {
			continue
		}
		if m == nil || m.Matches(slot) {
			total += slot.Quantity
		}
	}
	return total
}

// take removes up to n units from slot i and returns how many were removed.
func (inv *Inventory) take(i, n int) int {
	slot := &inv.slots[i]
	n = min(n, slot.Quantity)
	slot.Quantity -= n
	if slot.Quantity == 0 {
		inv.slots[i] = types.Resource{}
	}
	return n
}

// sameKind reports whether a and b can share a stack.
func sameKind(a, b types.Resource) bool {
	return a.Type == b.Type && a.Name == b.Name && maps.Equal(a.Tags, b.Tags)
}
