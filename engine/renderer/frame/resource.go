package frame

import (
	"fmt"

	"github.com/spaghettifunk/citadel/engine/renderer/device"
)

// Resource bundles everything one in-flight frame owns: the upload buffers
// its shader records live in, the command allocator its draw commands are
// recorded from, and the fence value that proves the GPU is done with it.
type Resource struct {
	Index            uint32
	ObjectBuffer     device.UploadBuffer
	PassBuffer       device.UploadBuffer
	CommandAllocator device.CommandAllocator
	// FenceValue is the fence value signalled after this slot's last
	// submission. Zero means the slot has never been submitted.
	FenceValue uint64
}

func newResource(backend device.Backend, index, objectCount uint32) (*Resource, error) {
	objectBuffer, err := backend.CreateUploadBuffer(ObjectConstantsSize, objectCount)
	if err != nil {
		return nil, fmt.Errorf("frame slot %d: object buffer: %w", index, err)
	}
	passBuffer, err := backend.CreateUploadBuffer(PassConstantsSize, 1)
	if err != nil {
		return nil, fmt.Errorf("frame slot %d: pass buffer: %w", index, err)
	}
	allocator, err := backend.CreateCommandAllocator()
	if err != nil {
		return nil, fmt.Errorf("frame slot %d: command allocator: %w", index, err)
	}
	return &Resource{
		Index:            index,
		ObjectBuffer:     objectBuffer,
		PassBuffer:       passBuffer,
		CommandAllocator: allocator,
	}, nil
}
