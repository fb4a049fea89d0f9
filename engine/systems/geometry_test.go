package systems

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/citadel/engine/core"
	"github.com/spaghettifunk/citadel/engine/geometry"
	"github.com/spaghettifunk/citadel/engine/math"
)

func TestRegisterAssignsContiguousRanges(t *testing.T) {
	gs := NewGeometrySystem()

	box := geometry.NewBox(1, 1, 1)
	grid := geometry.NewGrid(40, 35, 60, 40)

	require.NoError(t, gs.Register("box", box, math.NewVec4(1, 0, 0, 1)))
	require.NoError(t, gs.Register("grid", grid, math.NewVec4(0, 0, 1, 1)))

	boxRange, err := gs.Lookup("box")
	require.NoError(t, err)
	assert.Equal(t, uint32(len(box.Indices)), boxRange.IndexCount)
	assert.Equal(t, uint32(0), boxRange.StartIndex)
	assert.Equal(t, int32(0), boxRange.BaseVertex)

	gridRange, err := gs.Lookup("grid")
	require.NoError(t, err)
	assert.Equal(t, uint32(len(grid.Indices)), gridRange.IndexCount)
	assert.Equal(t, uint32(len(box.Indices)), gridRange.StartIndex)
	assert.Equal(t, int32(len(box.Vertices)), gridRange.BaseVertex)
}

func TestRegisterTintsVertices(t *testing.T) {
	gs := NewGeometrySystem()
	colour := math.NewVec4(0.25, 0.5, 0.75, 1)
	require.NoError(t, gs.Register("box", geometry.NewBox(1, 1, 1), colour))

	for _, v := range gs.vertices {
		assert.Equal(t, colour, v.Colour)
	}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	gs := NewGeometrySystem()
	require.NoError(t, gs.Register("box", geometry.NewBox(1, 1, 1), math.NewVec4(1, 1, 1, 1)))
	assert.Error(t, gs.Register("box", geometry.NewBox(2, 2, 2), math.NewVec4(1, 1, 1, 1)))
}

func TestLookupUnknownName(t *testing.T) {
	gs := NewGeometrySystem()
	_, err := gs.Lookup("moat")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownGeometry))
}
