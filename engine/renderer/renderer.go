package renderer

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/citadel/engine/core"
	"github.com/spaghettifunk/citadel/engine/renderer/device"
	"github.com/spaghettifunk/citadel/engine/renderer/frame"
	"github.com/spaghettifunk/citadel/engine/scene"
	"github.com/spaghettifunk/citadel/engine/systems"
)

// Config carries everything the renderer needs at startup.
type Config struct {
	ApplicationName    string
	Width              uint32
	Height             uint32
	VertexShaderPath   string
	FragmentShaderPath string
	// StallTimeout bounds every fence wait. Zero waits forever.
	StallTimeout time.Duration
}

// System is the renderer frontend. It owns the frame ring and the two
// pipeline variants, and turns a scene into one command submission per
// frame.
type System struct {
	backend  device.Backend
	geometry *systems.GeometrySystem
	ring     *frame.Ring

	solidPipeline     device.PipelineHandle
	wireframePipeline device.PipelineHandle

	width  uint32
	height uint32
}

// NewSystem initializes the backend, uploads the geometry store, builds
// the two pipelines and the frame ring, and publishes the ring's upload
// buffers in the descriptor table. The scene's item count is fixed from
// here on; the descriptor layout depends on it.
func NewSystem(backend device.Backend, geometry *systems.GeometrySystem, itemCount uint32, cfg *Config) (*System, error) {
	if err := backend.Initialize(cfg.ApplicationName, cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("backend init: %w", err)
	}
	if err := geometry.Upload(backend); err != nil {
		return nil, fmt.Errorf("geometry upload: %w", err)
	}

	solid, err := backend.CreatePipeline(&device.PipelineConfig{
		Name:               "opaque",
		VertexShaderPath:   cfg.VertexShaderPath,
		FragmentShaderPath: cfg.FragmentShaderPath,
		Fill:               device.FillModeSolid,
	})
	if err != nil {
		return nil, fmt.Errorf("solid pipeline: %w", err)
	}
	wireframe, err := backend.CreatePipeline(&device.PipelineConfig{
		Name:               "opaque_wireframe",
		VertexShaderPath:   cfg.VertexShaderPath,
		FragmentShaderPath: cfg.FragmentShaderPath,
		Fill:               device.FillModeWireframe,
	})
	if err != nil {
		return nil, fmt.Errorf("wireframe pipeline: %w", err)
	}

	ring, err := frame.NewRing(backend, itemCount, cfg.StallTimeout)
	if err != nil {
		return nil, fmt.Errorf("frame ring: %w", err)
	}

	descriptors := &device.DescriptorConfig{ObjectCount: itemCount}
	for i := uint32(0); i < frame.RingDepth; i++ {
		slot := ring.Current()
		descriptors.ObjectBuffers = append(descriptors.ObjectBuffers, slot.ObjectBuffer)
		descriptors.PassBuffers = append(descriptors.PassBuffers, slot.PassBuffer)
		ring.Advance()
	}
	if err := backend.BuildDescriptorTable(descriptors); err != nil {
		return nil, fmt.Errorf("descriptor table: %w", err)
	}

	core.LogInfo("renderer initialized: %d items, ring depth %d", itemCount, frame.RingDepth)
	return &System{
		backend:           backend,
		geometry:          geometry,
		ring:              ring,
		solidPipeline:     solid,
		wireframePipeline: wireframe,
		width:             cfg.Width,
		height:            cfg.Height,
	}, nil
}

// Ring exposes the frame ring so the engine loop can advance it and the
// scene can fill its slots.
func (rs *System) Ring() *frame.Ring {
	return rs.ring
}

// BeginFrame rotates to the next frame slot and blocks until the GPU has
// released it.
func (rs *System) BeginFrame() (*frame.Resource, error) {
	slot := rs.ring.Advance()
	if err := rs.ring.WaitIfBusy(); err != nil {
		return nil, err
	}
	return slot, nil
}

// DrawFrame records one indexed draw per render item into the slot's
// allocator and submits. An empty item list still produces a cleared,
// presented frame. Descriptor offsets follow the table layout: object
// records first grouped by slot, pass records after them.
func (rs *System) DrawFrame(slot *frame.Resource, items []*scene.RenderItem, wireframe bool) error {
	pipeline := rs.solidPipeline
	if wireframe {
		pipeline = rs.wireframePipeline
	}

	rec, err := rs.backend.BeginFrame(slot.CommandAllocator, pipeline)
	if err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}

	rec.SetViewport(rs.width, rs.height)
	rec.BindPassData(rs.ring.PassDescriptorOffset(slot.Index))
	rec.BindGeometry(rs.geometry.VertexBuffer(), rs.geometry.IndexBuffer())

	for _, item := range items {
		rec.SetTopology(item.Topology)
		rec.BindObjectData(rs.ring.ObjectDescriptorOffset(slot.Index, item.ObjectIndex))
		rec.DrawIndexed(item.Mesh.IndexCount, item.Mesh.StartIndex, item.Mesh.BaseVertex)
	}

	if err := rec.Close(); err != nil {
		return fmt.Errorf("close recorder: %w", err)
	}
	if err := rs.backend.Submit(rec); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := rs.backend.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return rs.ring.SignalCompletion()
}

// Resized updates the viewport and forwards the new extent to the backend.
func (rs *System) Resized(width, height uint16) error {
	rs.width = uint32(width)
	rs.height = uint32(height)
	return rs.backend.Resized(width, height)
}

// Shutdown drains the ring so the GPU is idle before the backend tears
// down its resources.
func (rs *System) Shutdown() error {
	if err := rs.ring.Drain(); err != nil {
		core.LogError("draining frame ring on shutdown: %s", err)
	}
	return rs.backend.Shutdown()
}
