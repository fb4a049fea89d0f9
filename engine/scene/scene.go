package scene

import (
	"fmt"

	"github.com/spaghettifunk/citadel/engine/math"
	"github.com/spaghettifunk/citadel/engine/renderer/components"
	"github.com/spaghettifunk/citadel/engine/renderer/device"
	"github.com/spaghettifunk/citadel/engine/renderer/frame"
	"github.com/spaghettifunk/citadel/engine/systems"
)

// Scene owns the render items and writes their shader records into
// whichever frame slot the ring hands it each tick.
type Scene struct {
	items []*RenderItem
}

func New() *Scene {
	return &Scene{}
}

// AddItem resolves the shape name against the geometry store and appends a
// render item with the given world transform. Object indices are assigned
// in insertion order and never reused.
func (s *Scene) AddItem(geometry *systems.GeometrySystem, name, shape string, world math.Mat4) (*RenderItem, error) {
	sub, err := geometry.Lookup(shape)
	if err != nil {
		return nil, fmt.Errorf("scene item %q: %w", name, err)
	}
	item := &RenderItem{
		Name:        name,
		Mesh:        sub,
		Topology:    device.TopologyTriangleList,
		ObjectIndex: uint32(len(s.items)),
	}
	item.SetWorld(world)
	s.items = append(s.items, item)
	return item, nil
}

func (s *Scene) Items() []*RenderItem {
	return s.items
}

func (s *Scene) ItemCount() uint32 {
	return uint32(len(s.items))
}

// UpdateObjectBuffer writes the transposed world transform of every dirty
// item into the slot's object buffer and consumes one dirty frame per
// item. Clean items are skipped so a static scene costs no upload traffic.
func (s *Scene) UpdateObjectBuffer(slot *frame.Resource) error {
	for _, item := range s.items {
		if item.dirtyFrames <= 0 {
			continue
		}
		oc := frame.ObjectConstants{World: item.world.Transposed()}
		if err := slot.ObjectBuffer.Load(item.ObjectIndex, oc.Encode()); err != nil {
			return fmt.Errorf("object constants for %q: %w", item.Name, err)
		}
		item.dirtyFrames--
	}
	return nil
}

// UpdatePassBuffer rebuilds the slot's pass record from the camera and
// clock. Unlike object records this is unconditional; it changes every
// frame.
func (s *Scene) UpdatePassBuffer(slot *frame.Resource, camera *components.OrbitCamera,
	width, height uint32, totalTime, deltaTime float64) error {

	view := camera.ViewMatrix()
	proj := camera.ProjectionMatrix()
	viewProj := view.Mul(proj)

	invView := view.Inverse()
	invProj := proj.Inverse()
	invViewProj := viewProj.Inverse()

	pc := frame.PassConstants{
		View:                view.Transposed(),
		InvView:             invView.Transposed(),
		Proj:                proj.Transposed(),
		InvProj:             invProj.Transposed(),
		ViewProj:            viewProj.Transposed(),
		InvViewProj:         invViewProj.Transposed(),
		EyePosition:         camera.Position(),
		RenderTargetSize:    math.NewVec2(float32(width), float32(height)),
		InvRenderTargetSize: math.NewVec2(1/float32(width), 1/float32(height)),
		NearZ:               camera.NearClip(),
		FarZ:                camera.FarClip(),
		TotalTime:           float32(totalTime),
		DeltaTime:           float32(deltaTime),
	}
	if err := slot.PassBuffer.Load(0, pc.Encode()); err != nil {
		return fmt.Errorf("pass constants: %w", err)
	}
	return nil
}
