package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/citadel/engine/geometry"
	"github.com/spaghettifunk/citadel/engine/math"
	"github.com/spaghettifunk/citadel/engine/renderer/components"
	"github.com/spaghettifunk/citadel/engine/renderer/frame"
	"github.com/spaghettifunk/citadel/engine/systems"
)

// recordBuffer is an in-memory upload buffer that counts Load calls.
type recordBuffer struct {
	stride uint32
	count  uint32
	data   []byte
	loads  int
}

func newRecordBuffer(stride, count uint32) *recordBuffer {
	return &recordBuffer{stride: stride, count: count, data: make([]byte, stride*count)}
}

func (b *recordBuffer) Load(index uint32, data []byte) error {
	copy(b.data[int(index)*int(b.stride):], data)
	b.loads++
	return nil
}

func (b *recordBuffer) Stride() uint32 { return b.stride }
func (b *recordBuffer) Count() uint32  { return b.count }

func (b *recordBuffer) record(index uint32) []byte {
	return b.data[int(index)*int(b.stride) : (int(index)+1)*int(b.stride)]
}

func newTestSlots(objectCount uint32) []*frame.Resource {
	slots := make([]*frame.Resource, frame.RingDepth)
	for i := range slots {
		slots[i] = &frame.Resource{
			Index:        uint32(i),
			ObjectBuffer: newRecordBuffer(frame.ObjectConstantsSize, objectCount),
			PassBuffer:   newRecordBuffer(frame.PassConstantsSize, 1),
		}
	}
	return slots
}

func newTestScene(t *testing.T) (*Scene, *systems.GeometrySystem) {
	t.Helper()
	gs := systems.NewGeometrySystem()
	require.NoError(t, gs.Register("box", geometry.NewBox(1, 1, 1), math.NewVec4(1, 0, 0, 1)))
	return New(), gs
}

func TestAddItemStartsFullyDirty(t *testing.T) {
	s, gs := newTestScene(t)

	item, err := s.AddItem(gs, "crate", "box", math.NewMat4Identity())
	require.NoError(t, err)
	assert.Equal(t, frame.RingDepth, item.DirtyFrames())
	assert.Equal(t, uint32(0), item.ObjectIndex)
}

func TestAddItemUnknownShape(t *testing.T) {
	s, gs := newTestScene(t)
	_, err := s.AddItem(gs, "moat", "water", math.NewMat4Identity())
	assert.Error(t, err)
}

func TestObjectUpdatePropagatesAcrossAllSlots(t *testing.T) {
	s, gs := newTestScene(t)
	world := math.NewMat4Translation(math.NewVec3(1, 2, 3))
	item, err := s.AddItem(gs, "crate", "box", world)
	require.NoError(t, err)

	slots := newTestSlots(1)
	want := (&frame.ObjectConstants{World: world.Transposed()}).Encode()

	for i, slot := range slots {
		require.NoError(t, s.UpdateObjectBuffer(slot))
		assert.Equal(t, frame.RingDepth-1-i, item.DirtyFrames())
		assert.Equal(t, want, slot.ObjectBuffer.(*recordBuffer).record(0))
	}

	// Clean items produce no further upload traffic.
	require.NoError(t, s.UpdateObjectBuffer(slots[0]))
	assert.Equal(t, 1, slots[0].ObjectBuffer.(*recordBuffer).loads)
	assert.Equal(t, 0, item.DirtyFrames())
}

func TestSetWorldRearmsDirtyCount(t *testing.T) {
	s, gs := newTestScene(t)
	item, err := s.AddItem(gs, "crate", "box", math.NewMat4Identity())
	require.NoError(t, err)

	slots := newTestSlots(1)
	for _, slot := range slots {
		require.NoError(t, s.UpdateObjectBuffer(slot))
	}
	require.Equal(t, 0, item.DirtyFrames())

	moved := math.NewMat4Translation(math.NewVec3(5, 0, 0))
	item.SetWorld(moved)
	assert.Equal(t, frame.RingDepth, item.DirtyFrames())

	want := (&frame.ObjectConstants{World: moved.Transposed()}).Encode()
	for _, slot := range slots {
		require.NoError(t, s.UpdateObjectBuffer(slot))
		assert.Equal(t, want, slot.ObjectBuffer.(*recordBuffer).record(0))
	}
	assert.Equal(t, 0, item.DirtyFrames())
}

func TestSetWorldMidPropagationRewritesEverySlot(t *testing.T) {
	s, gs := newTestScene(t)
	item, err := s.AddItem(gs, "crate", "box", math.NewMat4Identity())
	require.NoError(t, err)

	slots := newTestSlots(1)
	require.NoError(t, s.UpdateObjectBuffer(slots[0]))
	require.Equal(t, frame.RingDepth-1, item.DirtyFrames())

	moved := math.NewMat4Translation(math.NewVec3(0, 7, 0))
	item.SetWorld(moved)
	assert.Equal(t, frame.RingDepth, item.DirtyFrames())

	want := (&frame.ObjectConstants{World: moved.Transposed()}).Encode()
	for _, slot := range slots {
		require.NoError(t, s.UpdateObjectBuffer(slot))
	}
	for _, slot := range slots {
		assert.Equal(t, want, slot.ObjectBuffer.(*recordBuffer).record(0))
	}
}

func TestObjectUpdateWithNoItems(t *testing.T) {
	s := New()
	slots := newTestSlots(1)
	require.NoError(t, s.UpdateObjectBuffer(slots[0]))
	assert.Equal(t, 0, slots[0].ObjectBuffer.(*recordBuffer).loads)
}

func TestPassUpdateIsIdempotent(t *testing.T) {
	s := New()
	camera := components.NewOrbitCamera(800.0 / 600.0)
	slots := newTestSlots(1)
	slot := slots[0]

	require.NoError(t, s.UpdatePassBuffer(slot, camera, 800, 600, 12.5, 0.016))
	first := append([]byte(nil), slot.PassBuffer.(*recordBuffer).record(0)...)

	require.NoError(t, s.UpdatePassBuffer(slot, camera, 800, 600, 12.5, 0.016))
	assert.Equal(t, first, slot.PassBuffer.(*recordBuffer).record(0))
}

func TestPassUpdateEyePositionMatchesCamera(t *testing.T) {
	s := New()
	camera := components.NewOrbitCamera(1.0)
	slots := newTestSlots(1)
	slot := slots[0]

	require.NoError(t, s.UpdatePassBuffer(slot, camera, 800, 600, 0, 0))

	pc := frame.PassConstants{
		View:                camera.ViewMatrix().Transposed(),
		InvView:             camera.ViewMatrix().Inverse().Transposed(),
		Proj:                camera.ProjectionMatrix().Transposed(),
		InvProj:             camera.ProjectionMatrix().Inverse().Transposed(),
		ViewProj:            camera.ViewMatrix().Mul(camera.ProjectionMatrix()).Transposed(),
		InvViewProj:         camera.ViewMatrix().Mul(camera.ProjectionMatrix()).Inverse().Transposed(),
		EyePosition:         camera.Position(),
		RenderTargetSize:    math.NewVec2(800, 600),
		InvRenderTargetSize: math.NewVec2(1.0/800.0, 1.0/600.0),
		NearZ:               1.0,
		FarZ:                1000.0,
	}
	assert.Equal(t, pc.Encode(), slot.PassBuffer.(*recordBuffer).record(0))
}

func TestBuildCastle(t *testing.T) {
	gs := systems.NewGeometrySystem()
	require.NoError(t, RegisterCastleGeometry(gs))

	s := New()
	require.NoError(t, BuildCastle(s, gs))

	assert.Equal(t, 29, len(s.Items()))
	seen := make(map[uint32]bool)
	for _, item := range s.Items() {
		assert.False(t, seen[item.ObjectIndex], "object index %d reused", item.ObjectIndex)
		seen[item.ObjectIndex] = true
		assert.Equal(t, frame.RingDepth, item.DirtyFrames())
	}
}
