package systems

import (
	"fmt"

	"github.com/spaghettifunk/citadel/engine/core"
	"github.com/spaghettifunk/citadel/engine/geometry"
	"github.com/spaghettifunk/citadel/engine/math"
	"github.com/spaghettifunk/citadel/engine/renderer/device"
)

// SubRange addresses one named shape inside the store's concatenated
// vertex and index buffers. Values are cheap to copy; render items hold
// them directly.
type SubRange struct {
	IndexCount uint32
	StartIndex uint32
	BaseVertex int32
}

// GeometrySystem concatenates every registered mesh into one vertex buffer
// and one index buffer, uploaded to the device once at startup. Shapes are
// addressed afterwards only through named SubRanges.
type GeometrySystem struct {
	vertices []math.Vertex3D
	indices  []uint32
	ranges   map[string]SubRange

	vertexBuffer device.BufferHandle
	indexBuffer  device.BufferHandle
	uploaded     bool
}

func NewGeometrySystem() *GeometrySystem {
	return &GeometrySystem{
		ranges: make(map[string]SubRange),
	}
}

// Register appends a mesh to the store under name, tinting every vertex
// with the given colour. Registration is rejected after Upload since the
// device buffers are immutable.
func (gs *GeometrySystem) Register(name string, mesh *geometry.MeshData, colour math.Vec4) error {
	if gs.uploaded {
		return fmt.Errorf("geometry %q registered after upload", name)
	}
	if _, exists := gs.ranges[name]; exists {
		return fmt.Errorf("geometry %q already registered", name)
	}

	gs.ranges[name] = SubRange{
		IndexCount: uint32(len(mesh.Indices)),
		StartIndex: uint32(len(gs.indices)),
		BaseVertex: int32(len(gs.vertices)),
	}

	for _, v := range mesh.Vertices {
		v.Colour = colour
		gs.vertices = append(gs.vertices, v)
	}
	gs.indices = append(gs.indices, mesh.Indices...)
	return nil
}

// Upload pushes the concatenated buffers to the device. Must be called
// exactly once, after all Register calls.
func (gs *GeometrySystem) Upload(backend device.Backend) error {
	if gs.uploaded {
		return fmt.Errorf("geometry store uploaded twice")
	}
	vb, err := backend.CreateVertexBuffer(gs.vertices)
	if err != nil {
		core.LogError("failed to upload vertex buffer: %s", err)
		return err
	}
	ib, err := backend.CreateIndexBuffer(gs.indices)
	if err != nil {
		core.LogError("failed to upload index buffer: %s", err)
		return err
	}
	gs.vertexBuffer = vb
	gs.indexBuffer = ib
	gs.uploaded = true
	core.LogInfo("geometry store uploaded: %d vertices, %d indices, %d shapes",
		len(gs.vertices), len(gs.indices), len(gs.ranges))
	return nil
}

// Lookup resolves a shape name to its sub-range. An unknown name is a
// programming error in scene construction and is fatal.
func (gs *GeometrySystem) Lookup(name string) (SubRange, error) {
	sub, ok := gs.ranges[name]
	if !ok {
		return SubRange{}, fmt.Errorf("%w: %q", core.ErrUnknownGeometry, name)
	}
	return sub, nil
}

func (gs *GeometrySystem) VertexBuffer() device.BufferHandle { return gs.vertexBuffer }
func (gs *GeometrySystem) IndexBuffer() device.BufferHandle  { return gs.indexBuffer }
