package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validateMesh(t *testing.T, name string, mesh *MeshData) {
	t.Helper()

	require.NotEmpty(t, mesh.Vertices, "%s has no vertices", name)
	require.NotEmpty(t, mesh.Indices, "%s has no indices", name)
	assert.Zero(t, len(mesh.Indices)%3, "%s index count is not a triangle list", name)

	for _, idx := range mesh.Indices {
		assert.Less(t, idx, uint32(len(mesh.Vertices)), "%s index out of range", name)
	}
}

func TestGeneratorsProduceValidTriangleLists(t *testing.T) {
	meshes := map[string]*MeshData{
		"box":        NewBox(1, 1, 1),
		"wedge":      NewWedge(1, 1, 1),
		"triPrism":   NewTriangularPrism(1, 1),
		"pentaPrism": NewPentagonalPrism(2, 1),
		"pyramid":    NewPyramid(1, 1),
		"cone":       NewCone(3, 2, 16),
		"diamond":    NewDiamond(2.5, 0.6),
		"cylinder":   NewCylinder(2.5, 1, 1, 20, 20),
		"grid":       NewGrid(40, 35, 60, 40),
	}
	for name, mesh := range meshes {
		validateMesh(t, name, mesh)
	}
}

func TestGridDimensions(t *testing.T) {
	grid := NewGrid(40, 35, 60, 40)
	assert.Len(t, grid.Vertices, 61*41)
	assert.Len(t, grid.Indices, 60*40*6)

	// Corners span the requested extents.
	first := grid.Vertices[0].Position
	last := grid.Vertices[len(grid.Vertices)-1].Position
	assert.InDelta(t, -20.0, float64(first.X), 1e-5)
	assert.InDelta(t, 17.5, float64(first.Z), 1e-5)
	assert.InDelta(t, 20.0, float64(last.X), 1e-5)
	assert.InDelta(t, -17.5, float64(last.Z), 1e-5)
}

func TestBoxIsCentred(t *testing.T) {
	box := NewBox(2, 4, 6)
	for _, v := range box.Vertices {
		assert.InDelta(t, 1.0, float64(abs(v.Position.X)), 1e-6)
		assert.InDelta(t, 2.0, float64(abs(v.Position.Y)), 1e-6)
		assert.InDelta(t, 3.0, float64(abs(v.Position.Z)), 1e-6)
	}
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
