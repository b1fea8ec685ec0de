package world

import (
	"os"
	"path/filepath"
	"testing"

	"corenet/pkg/coordinator"
	"corenet/pkg/matcher"
	"corenet/pkg/types"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const sample = `
sparks:
  - id: core
    master: true
    at: overworld@0,64,0
  - id: west
    network: core
    at: overworld@-1,64,0
    container:
      slots: 9
      contents:
        - {type: block, name: stone, count: 2stacks}
        - {type: block, name: dirt, count: 10}
  - id: east
    network: core
    at: overworld@1,64,0
    retainer: true
    container:
      stack_limit: 1024
      contents:
        - {type: block, name: stone, count: 1k}
  - id: loose
`

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation(" nether@-3,70,12 ")
	require.NoError(t, err)
	assert.Equal(t, types.Location{Context: "nether", X: -3, Y: 70, Z: 12}, loc)

	again, err := ParseLocation(loc.String())
	require.NoError(t, err)
	assert.Equal(t, loc, again)

	for _, bad := range []string{"", "0,0,0", "@1,2,3", "end@1,2", "end@1,two,3"} {
		_, err := ParseLocation(bad)
		assert.Error(t, err, bad)
	}
}

func TestParse(t *testing.T) {
	w, err := Parse([]byte(sample), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Len(t, w.Sparks(), 4)
	assert.Equal(t, []types.NodeID{"core"}, w.Masters())
	assert.Len(t, w.Registry.Locations(), 2)

	core, err := w.Spark("core")
	require.NoError(t, err)
	assert.Len(t, core.Peers(), 3)

	loose, err := w.Spark("loose")
	require.NoError(t, err)
	assert.Nil(t, loose.Network())

	_, err = w.Spark("missing")
	assert.ErrorIs(t, err, ErrUnknownNode)

	_, err = w.Retainer("east")
	assert.NoError(t, err)
	_, err = w.Retainer("west")
	assert.ErrorIs(t, err, ErrUnknownNode)

	site, ok := w.Registry.Lookup(types.Location{Context: "overworld", X: -1, Y: 64})
	require.True(t, ok)
	assert.Equal(t, 9, site.Inventory.Slots())
	assert.Equal(t, 138, site.Inventory.Total(nil))
}

func TestWorldRequest(t *testing.T) {
	w, err := Parse([]byte(sample), zaptest.NewLogger(t))
	require.NoError(t, err)

	coord := coordinator.New(w.Registry, zaptest.NewLogger(t))
	core, _ := w.Spark("core")
	stone := matcher.MustPattern("stone")

	assert.Equal(t, 1128, coord.CountInNetwork(stone, core))

	got, err := coord.Request(stone, 200, core, true)
	require.NoError(t, err)
	total := 0
	for _, r := range got {
		total += r.Quantity
	}
	assert.Equal(t, 200, total)
	assert.Equal(t, 928, coord.CountInNetwork(stone, core))

	r, _ := w.Retainer("east")
	retained, ok := r.Retained()
	require.True(t, ok)
	assert.Equal(t, 200, retained.Requested)
	assert.Equal(t, 200, retained.Delivered)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	w, err := Load(path, nil)
	require.NoError(t, err)
	assert.Len(t, w.Sparks(), 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	desc := `
sparks:
  - id: a
    master: true
    network: b
  - id: a
  - id: c
    network: nowhere
  - id: d
    network: c
  - id: e
    retainer: true
  - id: f
    container:
      contents:
        - {name: stone, count: lots}
        - {type: block, count: all}
  - id: g
    at: bad
  - id: h
    at: o@0,0,0
  - id: i
    at: o@0,0,0
`
	_, err := Parse([]byte(desc), nil)
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	// master joining, unknown network twice, duplicate id, non-master network,
	// retainer without container, container without location, missing type,
	// bad count, unbounded count, bad location, occupied location
	assert.Len(t, merr.Errors, 12)
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestValidateRejectsCounts(t *testing.T) {
	tests := []struct {
		name  string
		count string
	}{
		{"unbounded", "all"},
		{"too large", "99999999999999999999"},
		{"too large with unit", "9999999999999999999k"},
		{"negative", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Description{Sparks: []SparkSpec{
				{ID: "m", Master: true},
				{ID: "c", Network: "m", At: "o@0,0,0", Container: &ContainerSpec{
					Contents: []ItemSpec{{Type: "block", Name: "stone", Count: tt.count}},
				}},
			}}
			_, err := Build(desc, nil)
			assert.ErrorContains(t, err, "item #0")
		})
	}
}

func TestBuildOverflow(t *testing.T) {
	desc := `
sparks:
  - id: m
    master: true
  - id: tiny
    network: m
    at: o@0,0,0
    container:
      slots: 1
      contents:
        - {type: block, name: stone, count: 65}
`
	_, err := Parse([]byte(desc), nil)
	assert.ErrorContains(t, err, "overflows by 1")
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("sparks: [\n"), nil)
	assert.Error(t, err)
}
