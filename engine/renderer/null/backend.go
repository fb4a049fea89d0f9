// Package null implements the device interfaces entirely in memory. It
// backs headless runs and tests: uploads land in plain byte slices, draws
// are recorded instead of executed, and the fence completes on demand or
// immediately on submit.
package null

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spaghettifunk/citadel/engine/core"
	"github.com/spaghettifunk/citadel/engine/math"
	"github.com/spaghettifunk/citadel/engine/renderer/device"
)

// Backend is the in-memory device. By default SignalFence completes
// instantly, as if the GPU were infinitely fast; SetManualFence hands
// completion control to the caller.
type Backend struct {
	fence *Fence

	manualFence bool
	pending     []uint64

	nextHandle     device.BufferHandle
	vertexBuffers  map[device.BufferHandle][]math.Vertex3D
	indexBuffers   map[device.BufferHandle][]uint32
	names          map[device.BufferHandle]string
	nextPipeline   device.PipelineHandle
	pipelines      map[device.PipelineHandle]device.PipelineConfig
	descriptors    *device.DescriptorConfig
	lastFrameDraws []DrawCall
	lastPipeline   device.PipelineHandle
	presented      uint64
}

// DrawCall captures one recorded DrawIndexed with the bindings in effect
// at the time.
type DrawCall struct {
	VertexBuffer device.BufferHandle
	IndexBuffer  device.BufferHandle
	Topology     device.Topology
	ObjectOffset uint32
	PassOffset   uint32
	IndexCount   uint32
	StartIndex   uint32
	BaseVertex   int32
}

func New() *Backend {
	return &Backend{
		fence:         NewFence(),
		vertexBuffers: make(map[device.BufferHandle][]math.Vertex3D),
		indexBuffers:  make(map[device.BufferHandle][]uint32),
		names:         make(map[device.BufferHandle]string),
		pipelines:     make(map[device.PipelineHandle]device.PipelineConfig),
	}
}

func (b *Backend) Initialize(appName string, width, height uint32) error {
	core.LogInfo("null backend initialized for %s (%dx%d)", appName, width, height)
	return nil
}

func (b *Backend) Shutdown() error { return nil }

func (b *Backend) Resized(width, height uint16) error { return nil }

// SetManualFence stops SignalFence from auto-completing so tests can hold
// fence values back and release them with CompleteFence.
func (b *Backend) SetManualFence(manual bool) {
	b.manualFence = manual
}

// CompleteFence marks value (and everything below it) reached.
func (b *Backend) CompleteFence(value uint64) {
	b.fence.complete(value)
}

func (b *Backend) CreateVertexBuffer(vertices []math.Vertex3D) (device.BufferHandle, error) {
	handle := b.allocHandle("vertex-buffer")
	b.vertexBuffers[handle] = append([]math.Vertex3D(nil), vertices...)
	return handle, nil
}

func (b *Backend) CreateIndexBuffer(indices []uint32) (device.BufferHandle, error) {
	handle := b.allocHandle("index-buffer")
	b.indexBuffers[handle] = append([]uint32(nil), indices...)
	return handle, nil
}

func (b *Backend) allocHandle(kind string) device.BufferHandle {
	handle := b.nextHandle
	b.nextHandle++
	name := fmt.Sprintf("%s-%s", kind, uuid.New().String())
	b.names[handle] = name
	core.LogDebug("null backend created %s", name)
	return handle
}

func (b *Backend) CreateUploadBuffer(stride, count uint32) (device.UploadBuffer, error) {
	return &UploadBuffer{
		stride: stride,
		count:  count,
		data:   make([]byte, int(stride)*int(count)),
	}, nil
}

func (b *Backend) CreateCommandAllocator() (device.CommandAllocator, error) {
	return &commandAllocator{}, nil
}

func (b *Backend) CreatePipeline(config *device.PipelineConfig) (device.PipelineHandle, error) {
	handle := b.nextPipeline
	b.nextPipeline++
	b.pipelines[handle] = *config
	return handle, nil
}

func (b *Backend) BuildDescriptorTable(config *device.DescriptorConfig) error {
	b.descriptors = config
	return nil
}

func (b *Backend) BeginFrame(allocator device.CommandAllocator, pipeline device.PipelineHandle) (device.CommandRecorder, error) {
	if _, ok := b.pipelines[pipeline]; !ok {
		return nil, fmt.Errorf("unknown pipeline handle %d", pipeline)
	}
	if err := allocator.Reset(); err != nil {
		return nil, err
	}
	return &recorder{pipeline: pipeline}, nil
}

func (b *Backend) Submit(rec device.CommandRecorder) error {
	r, ok := rec.(*recorder)
	if !ok {
		return fmt.Errorf("recorder does not belong to the null backend")
	}
	if !r.closed {
		return fmt.Errorf("recorder submitted before Close")
	}
	b.lastFrameDraws = append([]DrawCall(nil), r.draws...)
	b.lastPipeline = r.pipeline
	return nil
}

func (b *Backend) Present() error {
	b.presented++
	return nil
}

func (b *Backend) Fence() device.Fence { return b.fence }

func (b *Backend) SignalFence(value uint64) error {
	if b.manualFence {
		b.pending = append(b.pending, value)
		return nil
	}
	b.fence.complete(value)
	return nil
}

// LastFrameDraws returns the draw calls recorded by the most recent Submit.
func (b *Backend) LastFrameDraws() []DrawCall { return b.lastFrameDraws }

// LastPipeline returns the pipeline bound by the most recent Submit.
func (b *Backend) LastPipeline() device.PipelineHandle { return b.lastPipeline }

// PresentCount returns how many frames have been presented.
func (b *Backend) PresentCount() uint64 { return b.presented }

// Pipeline returns the config a pipeline was created with.
func (b *Backend) Pipeline(handle device.PipelineHandle) device.PipelineConfig {
	return b.pipelines[handle]
}

// VertexData returns the contents of an uploaded vertex buffer.
func (b *Backend) VertexData(handle device.BufferHandle) []math.Vertex3D {
	return b.vertexBuffers[handle]
}

// IndexData returns the contents of an uploaded index buffer.
func (b *Backend) IndexData(handle device.BufferHandle) []uint32 {
	return b.indexBuffers[handle]
}

// UploadBuffer is the null backend's CPU-side record buffer. Bytes exposes
// the raw contents for assertions.
type UploadBuffer struct {
	stride uint32
	count  uint32
	data   []byte
}

func (u *UploadBuffer) Load(index uint32, data []byte) error {
	if index >= u.count {
		return fmt.Errorf("upload index %d out of range (count %d)", index, u.count)
	}
	if uint32(len(data)) != u.stride {
		return fmt.Errorf("upload record is %d bytes, stride is %d", len(data), u.stride)
	}
	copy(u.data[int(index)*int(u.stride):], data)
	return nil
}

func (u *UploadBuffer) Stride() uint32 { return u.stride }
func (u *UploadBuffer) Count() uint32  { return u.count }

// Bytes returns the raw record at index.
func (u *UploadBuffer) Bytes(index uint32) []byte {
	return u.data[int(index)*int(u.stride) : (int(index)+1)*int(u.stride)]
}

type commandAllocator struct {
	resets int
}

func (a *commandAllocator) Reset() error {
	a.resets++
	return nil
}

type recorder struct {
	pipeline     device.PipelineHandle
	vertexBuffer device.BufferHandle
	indexBuffer  device.BufferHandle
	topology     device.Topology
	objectOffset uint32
	passOffset   uint32
	draws        []DrawCall
	closed       bool
}

func (r *recorder) SetViewport(width, height uint32) {}

func (r *recorder) BindGeometry(vertexBuffer, indexBuffer device.BufferHandle) {
	r.vertexBuffer = vertexBuffer
	r.indexBuffer = indexBuffer
}

func (r *recorder) SetTopology(topology device.Topology) {
	r.topology = topology
}

func (r *recorder) BindPassData(descriptorOffset uint32) {
	r.passOffset = descriptorOffset
}

func (r *recorder) BindObjectData(descriptorOffset uint32) {
	r.objectOffset = descriptorOffset
}

func (r *recorder) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	r.draws = append(r.draws, DrawCall{
		VertexBuffer: r.vertexBuffer,
		IndexBuffer:  r.indexBuffer,
		Topology:     r.topology,
		ObjectOffset: r.objectOffset,
		PassOffset:   r.passOffset,
		IndexCount:   indexCount,
		StartIndex:   startIndex,
		BaseVertex:   baseVertex,
	})
}

func (r *recorder) Close() error {
	r.closed = true
	return nil
}

// Fence is a manually completed fence guarded by a condition variable.
type Fence struct {
	mu        sync.Mutex
	cond      *sync.Cond
	completed uint64
}

func NewFence() *Fence {
	f := &Fence{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *Fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *Fence) complete(value uint64) {
	f.mu.Lock()
	if value > f.completed {
		f.completed = value
	}
	f.mu.Unlock()
	f.cond.Broadcast()
}

func (f *Fence) Wait(value uint64, timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
		timer := time.AfterFunc(timeout, f.cond.Broadcast)
		defer timer.Stop()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.completed < value {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return core.ErrRingStall
		}
		f.cond.Wait()
	}
	return nil
}
