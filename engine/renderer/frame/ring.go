package frame

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/citadel/engine/core"
	"github.com/spaghettifunk/citadel/engine/renderer/device"
)

// Ring rotates RingDepth frame Resources so the CPU can record up to
// RingDepth frames ahead of the GPU. The CPU blocks only when it laps the
// GPU, in WaitIfBusy.
type Ring struct {
	backend      device.Backend
	slots        [RingDepth]*Resource
	cursor       uint32
	currentFence uint64
	objectCount  uint32
	// stallTimeout bounds WaitIfBusy. Zero waits forever; a nonzero
	// timeout turns a hung device into a reportable ring stall.
	stallTimeout time.Duration
}

// NewRing allocates the per-slot resources. The cursor starts on slot 0;
// each frame advances it before recording, so the first recorded frame
// lands on slot 1.
func NewRing(backend device.Backend, objectCount uint32, stallTimeout time.Duration) (*Ring, error) {
	r := &Ring{
		backend:      backend,
		objectCount:  objectCount,
		stallTimeout: stallTimeout,
	}
	for i := uint32(0); i < RingDepth; i++ {
		slot, err := newResource(backend, i, objectCount)
		if err != nil {
			core.LogError("failed to create frame resources: %s", err)
			return nil, err
		}
		r.slots[i] = slot
	}
	return r, nil
}

// Current returns the slot the CPU is recording into.
func (r *Ring) Current() *Resource {
	return r.slots[r.cursor]
}

// ObjectCount returns the number of per-object records each slot holds.
func (r *Ring) ObjectCount() uint32 {
	return r.objectCount
}

// Advance rotates the cursor to the next slot and returns it. The slot is
// not safe to write until WaitIfBusy returns.
func (r *Ring) Advance() *Resource {
	r.cursor = (r.cursor + 1) % RingDepth
	return r.slots[r.cursor]
}

// WaitIfBusy blocks until the GPU has finished the current slot's previous
// submission. A slot that was never submitted, or whose fence value has
// already been reached, returns immediately.
func (r *Ring) WaitIfBusy() error {
	slot := r.Current()
	if slot.FenceValue == 0 {
		return nil
	}
	fence := r.backend.Fence()
	if fence.CompletedValue() >= slot.FenceValue {
		return nil
	}
	if err := fence.Wait(slot.FenceValue, r.stallTimeout); err != nil {
		return fmt.Errorf("frame slot %d stalled at fence value %d: %w", slot.Index, slot.FenceValue, err)
	}
	return nil
}

// SignalCompletion records the next fence value into the current slot and
// asks the queue to signal it once the slot's submitted work finishes. The
// CPU does not wait; the value is checked when the slot comes back around.
func (r *Ring) SignalCompletion() error {
	r.currentFence++
	slot := r.Current()
	slot.FenceValue = r.currentFence
	if err := r.backend.SignalFence(r.currentFence); err != nil {
		core.LogError("failed to signal fence value %d: %s", r.currentFence, err)
		return err
	}
	return nil
}

// Drain blocks until every signalled fence value has been reached. Called
// on shutdown and before destroying resources the GPU may still read.
func (r *Ring) Drain() error {
	if r.currentFence == 0 {
		return nil
	}
	fence := r.backend.Fence()
	if fence.CompletedValue() >= r.currentFence {
		return nil
	}
	if err := fence.Wait(r.currentFence, r.stallTimeout); err != nil {
		return fmt.Errorf("drain stalled at fence value %d: %w", r.currentFence, err)
	}
	return nil
}

// ObjectDescriptorOffset maps a slot and object to its descriptor-table
// offset. Slot s owns the contiguous object range [s*objectCount,
// (s+1)*objectCount).
func (r *Ring) ObjectDescriptorOffset(slotIndex, objectIndex uint32) uint32 {
	return slotIndex*r.objectCount + objectIndex
}

// PassDescriptorOffset maps a slot to its pass-record offset, placed after
// all object records.
func (r *Ring) PassDescriptorOffset(slotIndex uint32) uint32 {
	return r.objectCount*RingDepth + slotIndex
}
