package renderer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/citadel/engine/core"
	"github.com/spaghettifunk/citadel/engine/geometry"
	"github.com/spaghettifunk/citadel/engine/math"
	"github.com/spaghettifunk/citadel/engine/renderer/device"
	"github.com/spaghettifunk/citadel/engine/renderer/frame"
	"github.com/spaghettifunk/citadel/engine/renderer/null"
	"github.com/spaghettifunk/citadel/engine/scene"
	"github.com/spaghettifunk/citadel/engine/systems"
)

func testConfig() *Config {
	return &Config{
		ApplicationName:    "renderer-test",
		Width:              800,
		Height:             600,
		VertexShaderPath:   "assets/shaders/castle.vert.spv",
		FragmentShaderPath: "assets/shaders/castle.frag.spv",
	}
}

func newTestSystem(t *testing.T, itemCount uint32) (*System, *null.Backend, *systems.GeometrySystem) {
	t.Helper()
	backend := null.New()
	gs := systems.NewGeometrySystem()
	require.NoError(t, gs.Register("box", geometry.NewBox(1, 1, 1), math.NewVec4(1, 0, 0, 1)))

	rs, err := NewSystem(backend, gs, itemCount, testConfig())
	require.NoError(t, err)
	return rs, backend, gs
}

func testItem(t *testing.T, gs *systems.GeometrySystem, objectIndex uint32) *scene.RenderItem {
	t.Helper()
	sub, err := gs.Lookup("box")
	require.NoError(t, err)
	return &scene.RenderItem{
		Name:        "crate",
		Mesh:        sub,
		Topology:    device.TopologyTriangleList,
		ObjectIndex: objectIndex,
	}
}

func TestDrawFrameDescriptorOffsets(t *testing.T) {
	rs, backend, gs := newTestSystem(t, 50)

	// BeginFrame advances before recording, so the first frame lands on
	// slot 1 and the second on slot 2.
	slot, err := rs.BeginFrame()
	require.NoError(t, err)
	require.Equal(t, uint32(1), slot.Index)
	require.NoError(t, rs.DrawFrame(slot, nil, false))

	slot, err = rs.BeginFrame()
	require.NoError(t, err)
	require.Equal(t, uint32(2), slot.Index)

	require.NoError(t, rs.DrawFrame(slot, []*scene.RenderItem{testItem(t, gs, 10)}, false))

	draws := backend.LastFrameDraws()
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(110), draws[0].ObjectOffset)
	assert.Equal(t, uint32(152), draws[0].PassOffset)
}

func TestDrawFrameEmptySceneStillPresents(t *testing.T) {
	rs, backend, _ := newTestSystem(t, 1)

	slot, err := rs.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, rs.DrawFrame(slot, nil, false))

	assert.Empty(t, backend.LastFrameDraws())
	assert.Equal(t, uint64(1), backend.PresentCount())
	assert.Equal(t, uint64(1), backend.Fence().CompletedValue())
}

func TestDrawFrameZeroItemCount(t *testing.T) {
	// A system sized for zero objects still carries one pass record per
	// slot and renders cleared frames.
	rs, backend, _ := newTestSystem(t, 0)

	for i := 0; i < frame.RingDepth; i++ {
		slot, err := rs.BeginFrame()
		require.NoError(t, err)
		// Pass offsets collapse to the slot index when there are no
		// object records.
		assert.Equal(t, slot.Index, rs.Ring().PassDescriptorOffset(slot.Index))
		require.NoError(t, rs.DrawFrame(slot, nil, false))
	}

	assert.Empty(t, backend.LastFrameDraws())
	assert.Equal(t, uint64(frame.RingDepth), backend.PresentCount())
}

func TestDrawFrameOneDrawPerItem(t *testing.T) {
	rs, backend, gs := newTestSystem(t, 3)

	items := []*scene.RenderItem{
		testItem(t, gs, 0),
		testItem(t, gs, 1),
		testItem(t, gs, 2),
	}
	slot, err := rs.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, rs.DrawFrame(slot, items, false))

	draws := backend.LastFrameDraws()
	require.Len(t, draws, 3)
	sub, err := gs.Lookup("box")
	require.NoError(t, err)
	for i, d := range draws {
		assert.Equal(t, sub.IndexCount, d.IndexCount)
		assert.Equal(t, sub.StartIndex, d.StartIndex)
		assert.Equal(t, sub.BaseVertex, d.BaseVertex)
		assert.Equal(t, rs.Ring().ObjectDescriptorOffset(slot.Index, uint32(i)), d.ObjectOffset)
	}
}

func TestDrawFrameWireframePipeline(t *testing.T) {
	rs, backend, gs := newTestSystem(t, 1)

	slot, err := rs.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, rs.DrawFrame(slot, []*scene.RenderItem{testItem(t, gs, 0)}, true))
	assert.Equal(t, device.FillModeWireframe, backend.Pipeline(backend.LastPipeline()).Fill)

	slot, err = rs.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, rs.DrawFrame(slot, []*scene.RenderItem{testItem(t, gs, 0)}, false))
	assert.Equal(t, device.FillModeSolid, backend.Pipeline(backend.LastPipeline()).Fill)
}

func TestBeginFrameStallsWhenGPUFallsBehind(t *testing.T) {
	backend := null.New()
	backend.SetManualFence(true)
	gs := systems.NewGeometrySystem()
	require.NoError(t, gs.Register("box", geometry.NewBox(1, 1, 1), math.NewVec4(1, 0, 0, 1)))

	cfg := testConfig()
	cfg.StallTimeout = 20 * time.Millisecond
	rs, err := NewSystem(backend, gs, 1, cfg)
	require.NoError(t, err)

	// Fill every slot without the fence moving.
	for i := 0; i < frame.RingDepth; i++ {
		slot, err := rs.BeginFrame()
		require.NoError(t, err)
		require.NoError(t, rs.DrawFrame(slot, nil, false))
	}

	_, err = rs.BeginFrame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRingStall))

	// Once the fence catches up the same slot is reusable.
	backend.CompleteFence(1)
	require.NoError(t, rs.Ring().WaitIfBusy())
}
