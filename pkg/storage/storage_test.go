package storage

import (
	"testing"

	"corenet/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// typeMatcher is a minimal matcher so these tests do not depend on package matcher.
type typeMatcher string

func (m typeMatcher) Matches(r types.Resource) bool { return r.Type == string(m) }
func (m typeMatcher) String() string                { return string(m) }

func res(kind string, n int) types.Resource {
	return types.Resource{Type: kind, Name: kind, Quantity: n}
}

func TestInventoryOptions(t *testing.T) {
	tests := []struct {
		name      string
		slots     int
		limit     int
		wantSlots int
		wantLimit int
	}{
		{"defaults", 0, 0, DefaultSlots, DefaultStackLimit},
		{"custom", 5, 16, 5, 16},
		{"negative", -1, -1, DefaultSlots, DefaultStackLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := NewInventoryWithOptions(tt.slots, tt.limit)
			assert.Equal(t, tt.wantSlots, inv.Slots())
			assert.Equal(t, tt.wantLimit, inv.StackLimit())
		})
	}
}

func TestInventoryInsertSplitsStacks(t *testing.T) {
	inv := NewInventoryWithOptions(4, 64)

	leftover := inv.Insert(res("stone", 150))
	assert.Equal(t, 0, leftover)
	assert.Equal(t, []types.Resource{res("stone", 64), res("stone", 64), res("stone", 22)}, inv.Contents())

	// tops up the partial stack before using a new slot
	leftover = inv.Insert(res("stone", 50))
	assert.Equal(t, 0, leftover)
	assert.Equal(t, 64, inv.Slot(2).Quantity)
	assert.Equal(t, 8, inv.Slot(3).Quantity)

	leftover = inv.Insert(res("dirt", 10))
	assert.Equal(t, 10, leftover, "no room left")
	assert.Equal(t, 200, inv.Total(nil))
}

func TestInventoryKeepsTagsApart(t *testing.T) {
	inv := NewInventoryWithOptions(3, 64)

	plain := res("sword", 1)
	named := res("sword", 1)
	named.Tags = map[string]string{"name": "Excalibur"}

	inv.Insert(plain)
	inv.Insert(named)
	inv.Insert(plain)

	contents := inv.Contents()
	require.Len(t, contents, 2)
	assert.Equal(t, 2, contents[0].Quantity)
	assert.Equal(t, 1, contents[1].Quantity)
	assert.Equal(t, "Excalibur", contents[1].Tags["name"])
}

func TestAdapterCountDoesNotMutate(t *testing.T) {
	inv := NewInventoryWithOptions(4, 64)
	inv.Insert(res("x", 100))
	inv.Insert(res("y", 5))
	before := inv.Contents()

	a := NewInventoryAdapter(inv, types.Location{}, nil, nil)
	req := types.NewRequest(typeMatcher("x"), types.Unbounded)
	units := a.CountItems(req)

	assert.Equal(t, []types.Resource{res("x", 64), res("x", 36)}, units)
	assert.Equal(t, 100, req.Found)
	assert.Equal(t, 0, req.Extracted)
	assert.Equal(t, before, inv.Contents())
}

func TestAdapterUnitsDoNotShareTags(t *testing.T) {
	inv := NewInventoryWithOptions(2, 64)
	named := res("sword", 2)
	named.Tags = map[string]string{"name": "Excalibur"}
	inv.Insert(named)

	a := NewInventoryAdapter(inv, types.Location{}, nil, nil)

	counted := a.CountItems(types.NewRequest(typeMatcher("sword"), types.Unbounded))
	require.Len(t, counted, 1)
	counted[0].Tags["name"] = "Counted"

	extracted := a.ExtractItems(types.NewRequest(typeMatcher("sword"), 1))
	require.Len(t, extracted, 1)
	extracted[0].Tags["name"] = "Extracted"

	contents := inv.Contents()
	require.Len(t, contents, 1)
	assert.Equal(t, "Excalibur", contents[0].Tags["name"])

	contents[0].Tags["name"] = "Listed"
	assert.Equal(t, "Excalibur", inv.Slot(0).Tags["name"])
}

func TestAdapterCountHonorsBound(t *testing.T) {
	inv := NewInventoryWithOptions(4, 64)
	inv.Insert(res("x", 100))

	a := NewInventoryAdapter(inv, types.Location{}, nil, nil)
	req := types.NewRequest(typeMatcher("x"), 70)
	units := a.CountItems(req)

	assert.Equal(t, []types.Resource{res("x", 64), res("x", 6)}, units)
	assert.Equal(t, 70, req.Found)
	assert.True(t, req.Satisfied())
}

func TestAdapterExtract(t *testing.T) {
	tests := []struct {
		name          string
		requested     int
		wantExtracted int
		wantLeft      int
	}{
		{"partial", 70, 70, 30},
		{"exact", 100, 100, 0},
		{"more than available", 500, 100, 0},
		{"unbounded", types.Unbounded, 100, 0},
		{"zero matches nothing", 0, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := NewInventoryWithOptions(4, 64)
			inv.Insert(res("x", 100))
			inv.Insert(res("y", 7))

			a := NewInventoryAdapter(inv, types.Location{}, nil, nil)
			req := types.NewRequest(typeMatcher("x"), tt.requested)
			units := a.ExtractItems(req)

			total := 0
			for _, u := range units {
				total += u.Quantity
			}
			assert.Equal(t, tt.wantExtracted, total, "returned units")
			assert.Equal(t, tt.wantExtracted, req.Extracted)
			assert.Equal(t, tt.wantExtracted, req.Found)
			assert.Equal(t, tt.wantLeft, inv.Total(typeMatcher("x")))
			assert.Equal(t, 7, inv.Total(typeMatcher("y")), "non matching units untouched")
		})
	}
}

func TestAdapterSharesRequestAcrossLocations(t *testing.T) {
	first := NewInventory()
	first.Insert(res("x", 5))
	second := NewInventory()
	second.Insert(res("x", 3))

	req := types.NewRequest(typeMatcher("x"), 6)
	for _, inv := range []*Inventory{first, second} {
		NewInventoryAdapter(inv, types.Location{}, nil, nil).ExtractItems(req)
	}

	assert.Equal(t, 6, req.Extracted)
	assert.Equal(t, 0, first.Total(nil))
	assert.Equal(t, 2, second.Total(nil))
}

func TestRegistryWrapSkipsUnresolvable(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	l1 := types.Location{Context: "w", X: 1}
	l2 := types.Location{Context: "w", X: 2}
	l3 := types.Location{Context: "w", X: 3}

	r.Place(l1, NewInventory(), nil, nil)
	r.Place(l3, NewInventory(), nil, "owner")

	wrapped := r.Wrap([]types.Location{l3, l2, l1})
	require.Len(t, wrapped, 2)
	assert.Equal(t, l3, wrapped[0].Location())
	assert.Equal(t, "owner", wrapped[0].Owner())
	assert.Equal(t, l1, wrapped[1].Location())

	r.Remove(l3)
	assert.Len(t, r.Wrap([]types.Location{l3, l2, l1}), 1)
	assert.Equal(t, []types.Location{l1}, r.Locations())
}

type stubNode struct{ id types.NodeID }

func (n *stubNode) ID() types.NodeID                 { return n.id }
func (n *stubNode) Master() types.Node               { return nil }
func (n *stubNode) Network() *types.Network          { return nil }
func (n *stubNode) Location() (types.Location, bool) { return types.Location{}, false }

func TestRegistryNodeFor(t *testing.T) {
	r := NewRegistry(nil)
	loc := types.Location{Context: "w", X: 1}
	bare := types.Location{Context: "w", X: 2}

	n := &stubNode{id: "spark"}
	r.Place(loc, NewInventory(), n, nil)
	r.Place(bare, NewInventory(), nil, nil)

	got, ok := r.NodeFor(loc)
	require.True(t, ok)
	assert.Equal(t, types.NodeID("spark"), got.ID())

	_, ok = r.NodeFor(bare)
	assert.False(t, ok)
	_, ok = r.NodeFor(types.Location{Context: "nowhere"})
	assert.False(t, ok)

	site, ok := r.Lookup(loc)
	require.True(t, ok)
	assert.Same(t, n, site.Node)
}
