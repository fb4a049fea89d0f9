package geometry

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/citadel/engine/math"
)

// MeshData is the CPU-side output of a procedural generator: a position-only
// vertex list (colour is assigned when the scene geometry is concatenated)
// and a uint32 triangle-list index buffer.
type MeshData struct {
	Vertices []math.Vertex3D
	Indices  []uint32
}

// NewBox creates an axis-aligned box centred at the origin.
func NewBox(width, height, depth float32) *MeshData {
	w2 := width * 0.5
	h2 := height * 0.5
	d2 := depth * 0.5

	vertices := []math.Vertex3D{
		{Position: math.NewVec3(-w2, -h2, -d2)},
		{Position: math.NewVec3(-w2, +h2, -d2)},
		{Position: math.NewVec3(+w2, +h2, -d2)},
		{Position: math.NewVec3(+w2, -h2, -d2)},
		{Position: math.NewVec3(-w2, -h2, +d2)},
		{Position: math.NewVec3(-w2, +h2, +d2)},
		{Position: math.NewVec3(+w2, +h2, +d2)},
		{Position: math.NewVec3(+w2, -h2, +d2)},
	}

	indices := []uint32{
		// front
		0, 1, 2, 0, 2, 3,
		// back
		4, 6, 5, 4, 7, 6,
		// left
		4, 5, 1, 4, 1, 0,
		// right
		3, 2, 6, 3, 6, 7,
		// top
		1, 5, 6, 1, 6, 2,
		// bottom
		4, 0, 3, 4, 3, 7,
	}

	return &MeshData{Vertices: vertices, Indices: indices}
}

// NewWedge creates a box cut diagonally in half: a right-triangle cross
// section extruded along depth.
func NewWedge(width, height, depth float32) *MeshData {
	w2 := width * 0.5
	h2 := height * 0.5
	d2 := depth * 0.5

	vertices := []math.Vertex3D{
		{Position: math.NewVec3(-w2, -h2, -d2)},
		{Position: math.NewVec3(-w2, +h2, -d2)},
		{Position: math.NewVec3(+w2, -h2, -d2)},
		{Position: math.NewVec3(-w2, -h2, +d2)},
		{Position: math.NewVec3(-w2, +h2, +d2)},
		{Position: math.NewVec3(+w2, -h2, +d2)},
	}

	indices := []uint32{
		// triangular caps
		0, 1, 2,
		3, 5, 4,
		// bottom
		0, 2, 5, 0, 5, 3,
		// vertical back face
		0, 3, 4, 0, 4, 1,
		// slope
		1, 4, 5, 1, 5, 2,
	}

	return &MeshData{Vertices: vertices, Indices: indices}
}

// NewTriangularPrism creates a prism with an equilateral-triangle cross
// section of the given side length, extruded along depth.
func NewTriangularPrism(side, depth float32) *MeshData {
	return newRegularPrism(3, side/math32.Sqrt(3), depth)
}

// NewPentagonalPrism creates a prism with a regular pentagonal cross section
// of the given circumradius, extruded along height.
func NewPentagonalPrism(radius, height float32) *MeshData {
	return newRegularPrism(5, radius, height)
}

// newRegularPrism builds an n-gon cross section in the XZ plane extruded
// along Y, centred at the origin.
func newRegularPrism(sides uint32, radius, height float32) *MeshData {
	h2 := height * 0.5
	vertices := make([]math.Vertex3D, 0, sides*2+2)
	indices := make([]uint32, 0, sides*12)

	for _, y := range []float32{-h2, +h2} {
		for i := uint32(0); i < sides; i++ {
			angle := 2.0 * math.Pi * float32(i) / float32(sides)
			vertices = append(vertices, math.Vertex3D{
				Position: math.NewVec3(radius*math32.Cos(angle), y, radius*math32.Sin(angle)),
			})
		}
	}
	// Cap centres.
	bottomCentre := sides * 2
	topCentre := sides*2 + 1
	vertices = append(vertices,
		math.Vertex3D{Position: math.NewVec3(0, -h2, 0)},
		math.Vertex3D{Position: math.NewVec3(0, +h2, 0)},
	)

	for i := uint32(0); i < sides; i++ {
		next := (i + 1) % sides

		// side quad
		indices = append(indices,
			i, sides+i, sides+next,
			i, sides+next, next,
		)
		// caps
		indices = append(indices, bottomCentre, next, i)
		indices = append(indices, topCentre, sides+i, sides+next)
	}

	return &MeshData{Vertices: vertices, Indices: indices}
}

// NewPyramid creates a square-based pyramid with the given base width and
// height, the apex on +Y.
func NewPyramid(baseWidth, height float32) *MeshData {
	w2 := baseWidth * 0.5
	h2 := height * 0.5

	vertices := []math.Vertex3D{
		{Position: math.NewVec3(-w2, -h2, -w2)},
		{Position: math.NewVec3(+w2, -h2, -w2)},
		{Position: math.NewVec3(+w2, -h2, +w2)},
		{Position: math.NewVec3(-w2, -h2, +w2)},
		{Position: math.NewVec3(0, +h2, 0)},
	}

	indices := []uint32{
		// base
		0, 2, 1, 0, 3, 2,
		// sides
		0, 1, 4,
		1, 2, 4,
		2, 3, 4,
		3, 0, 4,
	}

	return &MeshData{Vertices: vertices, Indices: indices}
}

// NewCone creates a cone with a circular base of the given radius and the
// apex on +Y, approximated with sliceCount segments.
func NewCone(height, radius float32, sliceCount uint32) *MeshData {
	h2 := height * 0.5
	vertices := make([]math.Vertex3D, 0, sliceCount+2)
	indices := make([]uint32, 0, sliceCount*6)

	for i := uint32(0); i < sliceCount; i++ {
		angle := 2.0 * math.Pi * float32(i) / float32(sliceCount)
		vertices = append(vertices, math.Vertex3D{
			Position: math.NewVec3(radius*math32.Cos(angle), -h2, radius*math32.Sin(angle)),
		})
	}
	apex := sliceCount
	centre := sliceCount + 1
	vertices = append(vertices,
		math.Vertex3D{Position: math.NewVec3(0, +h2, 0)},
		math.Vertex3D{Position: math.NewVec3(0, -h2, 0)},
	)

	for i := uint32(0); i < sliceCount; i++ {
		next := (i + 1) % sliceCount
		indices = append(indices, i, apex, next)
		indices = append(indices, centre, i, next)
	}

	return &MeshData{Vertices: vertices, Indices: indices}
}

// NewDiamond creates a six-sided bipyramid: two pyramids joined at a
// hexagonal girdle of the given radius, total height as given.
func NewDiamond(height, radius float32) *MeshData {
	const sides = 6
	h2 := height * 0.5

	vertices := make([]math.Vertex3D, 0, sides+2)
	for i := 0; i < sides; i++ {
		angle := 2.0 * math.Pi * float32(i) / float32(sides)
		vertices = append(vertices, math.Vertex3D{
			Position: math.NewVec3(radius*math32.Cos(angle), 0, radius*math32.Sin(angle)),
		})
	}
	top := uint32(sides)
	bottom := uint32(sides + 1)
	vertices = append(vertices,
		math.Vertex3D{Position: math.NewVec3(0, +h2, 0)},
		math.Vertex3D{Position: math.NewVec3(0, -h2, 0)},
	)

	indices := make([]uint32, 0, sides*6)
	for i := uint32(0); i < sides; i++ {
		next := (i + 1) % sides
		indices = append(indices, i, top, next)
		indices = append(indices, i, next, bottom)
	}

	return &MeshData{Vertices: vertices, Indices: indices}
}

// NewCylinder creates a cylinder along Y with separately sized bottom and
// top radii, stackCount rings and sliceCount segments per ring.
func NewCylinder(bottomRadius, topRadius, height float32, sliceCount, stackCount uint32) *MeshData {
	stackHeight := height / float32(stackCount)
	radiusStep := (topRadius - bottomRadius) / float32(stackCount)
	ringCount := stackCount + 1

	vertices := make([]math.Vertex3D, 0, ringCount*(sliceCount+1)+2)
	for i := uint32(0); i < ringCount; i++ {
		y := -0.5*height + float32(i)*stackHeight
		r := bottomRadius + float32(i)*radiusStep
		// Duplicate the seam vertex so the ring closes cleanly.
		for j := uint32(0); j <= sliceCount; j++ {
			angle := 2.0 * math.Pi * float32(j) / float32(sliceCount)
			vertices = append(vertices, math.Vertex3D{
				Position: math.NewVec3(r*math32.Cos(angle), y, r*math32.Sin(angle)),
			})
		}
	}

	indices := make([]uint32, 0, stackCount*sliceCount*6+sliceCount*6)
	ringStride := sliceCount + 1
	for i := uint32(0); i < stackCount; i++ {
		for j := uint32(0); j < sliceCount; j++ {
			a := i*ringStride + j
			b := (i+1)*ringStride + j
			indices = append(indices,
				a, b, b+1,
				a, b+1, a+1,
			)
		}
	}

	// Caps.
	bottomCentre := uint32(len(vertices))
	vertices = append(vertices, math.Vertex3D{Position: math.NewVec3(0, -0.5*height, 0)})
	topCentre := uint32(len(vertices))
	vertices = append(vertices, math.Vertex3D{Position: math.NewVec3(0, +0.5*height, 0)})

	topRingStart := stackCount * ringStride
	for j := uint32(0); j < sliceCount; j++ {
		indices = append(indices, bottomCentre, j+1, j)
		indices = append(indices, topCentre, topRingStart+j, topRingStart+j+1)
	}

	return &MeshData{Vertices: vertices, Indices: indices}
}

// NewGrid creates a flat grid in the XZ plane with m columns and n rows of
// quads over the given width and depth.
func NewGrid(width, depth float32, m, n uint32) *MeshData {
	vertexCount := (m + 1) * (n + 1)
	halfWidth := 0.5 * width
	halfDepth := 0.5 * depth

	dx := width / float32(m)
	dz := depth / float32(n)

	vertices := make([]math.Vertex3D, 0, vertexCount)
	for i := uint32(0); i <= n; i++ {
		z := halfDepth - float32(i)*dz
		for j := uint32(0); j <= m; j++ {
			x := -halfWidth + float32(j)*dx
			vertices = append(vertices, math.Vertex3D{
				Position: math.NewVec3(x, 0, z),
			})
		}
	}

	indices := make([]uint32, 0, m*n*6)
	stride := m + 1
	for i := uint32(0); i < n; i++ {
		for j := uint32(0); j < m; j++ {
			indices = append(indices,
				i*stride+j,
				i*stride+j+1,
				(i+1)*stride+j,

				(i+1)*stride+j,
				i*stride+j+1,
				(i+1)*stride+j+1,
			)
		}
	}

	return &MeshData{Vertices: vertices, Indices: indices}
}
