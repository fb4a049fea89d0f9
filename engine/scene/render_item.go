package scene

import (
	"github.com/spaghettifunk/citadel/engine/math"
	"github.com/spaghettifunk/citadel/engine/renderer/device"
	"github.com/spaghettifunk/citadel/engine/renderer/frame"
	"github.com/spaghettifunk/citadel/engine/systems"
)

// RenderItem is one drawable object: a sub-range of the geometry store plus
// a world transform. The item tracks how many frame slots still hold a
// stale copy of its transform.
type RenderItem struct {
	Name        string
	Mesh        systems.SubRange
	Topology    device.Topology
	ObjectIndex uint32

	world math.Mat4
	// dirtyFrames counts the ring slots whose object buffer has not yet
	// seen the current world transform. Always in [0, frame.RingDepth].
	dirtyFrames int
}

// SetWorld replaces the item's world transform and marks every ring slot
// stale so the new transform propagates to all of them.
func (ri *RenderItem) SetWorld(world math.Mat4) {
	ri.world = world
	ri.dirtyFrames = frame.RingDepth
}

func (ri *RenderItem) World() math.Mat4 {
	return ri.world
}

// DirtyFrames reports how many slots still need this item's transform.
func (ri *RenderItem) DirtyFrames() int {
	return ri.dirtyFrames
}
