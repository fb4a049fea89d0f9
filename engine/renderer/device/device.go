// Package device defines the boundary between the renderer and a concrete
// graphics backend. The engine records draw commands and descriptor bindings
// against these interfaces; the vulkan package implements them on a real
// device and the null package implements them in memory for headless runs
// and tests.
package device

import (
	"time"

	"github.com/spaghettifunk/citadel/engine/math"
)

type Topology uint8

const (
	TopologyTriangleList Topology = iota
	TopologyLineList
	TopologyPointList
)

type FillMode uint8

const (
	FillModeSolid FillMode = iota
	FillModeWireframe
)

// BufferHandle identifies a device-owned immutable buffer.
type BufferHandle uint32

// PipelineHandle identifies a compiled pipeline-state object.
type PipelineHandle uint32

// PipelineConfig describes one pipeline-state variant. The solid and
// wireframe pipelines of the demo differ only in Fill.
type PipelineConfig struct {
	Name               string
	VertexShaderPath   string
	FragmentShaderPath string
	Fill               FillMode
}

// UploadBuffer is a CPU-writable, GPU-visible buffer holding Count fixed
// stride records. The CPU may only rewrite records of a frame slot once the
// fence proves the GPU finished reading that slot's previous contents; the
// frame ring enforces this.
type UploadBuffer interface {
	// Load copies one record into the buffer at the given element index.
	// len(data) must equal Stride.
	Load(index uint32, data []byte) error
	Stride() uint32
	Count() uint32
}

// CommandAllocator owns the command-recording memory of one frame slot,
// reused each time the slot comes back around.
type CommandAllocator interface {
	Reset() error
}

// CommandRecorder records one frame's draw commands. Obtained from
// Backend.BeginFrame, finished with Close and handed to Submit.
type CommandRecorder interface {
	SetViewport(width, height uint32)
	BindGeometry(vertexBuffer, indexBuffer BufferHandle)
	SetTopology(topology Topology)
	// BindPassData binds the per-pass record at the given descriptor offset.
	BindPassData(descriptorOffset uint32)
	// BindObjectData binds one object's record at the given descriptor offset.
	BindObjectData(descriptorOffset uint32)
	DrawIndexed(indexCount, startIndex uint32, baseVertex int32)
	Close() error
}

// Fence is a monotonically increasing completion token shared by all frame
// slots. Reaching a value means all GPU work submitted up to the matching
// Signal has finished.
type Fence interface {
	CompletedValue() uint64
	// Wait blocks until the fence reaches value or the timeout elapses.
	// A zero timeout waits forever. Returns core.ErrRingStall wrapped in a
	// descriptive error when the timeout elapses first.
	Wait(value uint64, timeout time.Duration) error
}

// DescriptorConfig wires the per-slot upload buffers into the shader-visible
// binding table. Object records occupy offsets
// [0, len(ObjectBuffers)*ObjectCount): offset = slot*ObjectCount + object.
// Pass records follow at offset len(ObjectBuffers)*ObjectCount + slot.
type DescriptorConfig struct {
	ObjectCount   uint32
	ObjectBuffers []UploadBuffer
	PassBuffers   []UploadBuffer
}

// Backend is the graphics device collaborator. Creation failures are fatal;
// callers abort the session rather than retry.
type Backend interface {
	Initialize(appName string, width, height uint32) error
	Shutdown() error
	Resized(width, height uint16) error

	CreateVertexBuffer(vertices []math.Vertex3D) (BufferHandle, error)
	CreateIndexBuffer(indices []uint32) (BufferHandle, error)
	CreateUploadBuffer(stride, count uint32) (UploadBuffer, error)
	CreateCommandAllocator() (CommandAllocator, error)
	CreatePipeline(config *PipelineConfig) (PipelineHandle, error)
	BuildDescriptorTable(config *DescriptorConfig) error

	BeginFrame(allocator CommandAllocator, pipeline PipelineHandle) (CommandRecorder, error)
	Submit(recorder CommandRecorder) error
	Present() error

	Fence() Fence
	// SignalFence asynchronously requests the queue to mark value reached
	// once all previously submitted work has finished.
	SignalFence(value uint64) error
}
