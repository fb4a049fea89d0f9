package frame

import (
	"encoding/binary"

	"github.com/chewxy/math32"

	"github.com/spaghettifunk/citadel/engine/math"
)

// RingDepth is the number of frames the CPU may record ahead of the GPU.
// Every per-frame resource (upload buffers, command allocators, dirty
// counters) is sized against this constant.
const RingDepth = 3

const (
	// ObjectConstantsSize is the byte stride of one encoded ObjectConstants.
	ObjectConstantsSize = 64
	// PassConstantsSize is the byte stride of one encoded PassConstants,
	// padded so every member sits on a 16 byte boundary.
	PassConstantsSize = 432
)

// ObjectConstants is the per-object shader record. World is stored already
// transposed for the shader's column-vector convention.
type ObjectConstants struct {
	World math.Mat4
}

// PassConstants is the per-pass shader record, rebuilt every frame. All
// matrices are stored transposed.
type PassConstants struct {
	View        math.Mat4
	InvView     math.Mat4
	Proj        math.Mat4
	InvProj     math.Mat4
	ViewProj    math.Mat4
	InvViewProj math.Mat4

	EyePosition math.Vec3

	RenderTargetSize    math.Vec2
	InvRenderTargetSize math.Vec2

	NearZ     float32
	FarZ      float32
	TotalTime float32
	DeltaTime float32
}

func putFloat32(dst []byte, offset int, v float32) int {
	binary.LittleEndian.PutUint32(dst[offset:], math32.Float32bits(v))
	return offset + 4
}

func putMat4(dst []byte, offset int, m *math.Mat4) int {
	for _, v := range m.Data {
		offset = putFloat32(dst, offset, v)
	}
	return offset
}

// Encode serializes the record into the upload-buffer layout.
func (oc *ObjectConstants) Encode() []byte {
	out := make([]byte, ObjectConstantsSize)
	putMat4(out, 0, &oc.World)
	return out
}

// Encode serializes the record into the upload-buffer layout. A pad float
// follows EyePosition to keep the vector members 16 byte aligned.
func (pc *PassConstants) Encode() []byte {
	out := make([]byte, PassConstantsSize)
	o := 0
	o = putMat4(out, o, &pc.View)
	o = putMat4(out, o, &pc.InvView)
	o = putMat4(out, o, &pc.Proj)
	o = putMat4(out, o, &pc.InvProj)
	o = putMat4(out, o, &pc.ViewProj)
	o = putMat4(out, o, &pc.InvViewProj)
	o = putFloat32(out, o, pc.EyePosition.X)
	o = putFloat32(out, o, pc.EyePosition.Y)
	o = putFloat32(out, o, pc.EyePosition.Z)
	o += 4 // pad
	o = putFloat32(out, o, pc.RenderTargetSize.X)
	o = putFloat32(out, o, pc.RenderTargetSize.Y)
	o = putFloat32(out, o, pc.InvRenderTargetSize.X)
	o = putFloat32(out, o, pc.InvRenderTargetSize.Y)
	o = putFloat32(out, o, pc.NearZ)
	o = putFloat32(out, o, pc.FarZ)
	o = putFloat32(out, o, pc.TotalTime)
	putFloat32(out, o, pc.DeltaTime)
	return out
}
