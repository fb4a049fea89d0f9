package vulkan

import (
	"fmt"
	"sync"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/citadel/engine/core"
)

type pendingFence struct {
	value uint64
	fence vk.Fence
}

// SubmissionFence maps the renderer's monotonically increasing fence values
// onto per-submission VkFences. Values complete in submission order, so the
// pending list retires from the front.
type SubmissionFence struct {
	context *VulkanContext

	mu        sync.Mutex
	completed uint64
	pending   []pendingFence
	recycled  []vk.Fence
}

func NewSubmissionFence(context *VulkanContext) *SubmissionFence {
	return &SubmissionFence{context: context}
}

// Register associates value with a fresh (or recycled, reset) VkFence and
// returns it for the queue submission that signals value.
func (sf *SubmissionFence) Register(value uint64) (vk.Fence, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	if len(sf.pending) > 0 && value <= sf.pending[len(sf.pending)-1].value {
		return vk.NullFence, fmt.Errorf("fence value %d is not monotonically increasing", value)
	}

	var fence vk.Fence
	if n := len(sf.recycled); n > 0 {
		fence = sf.recycled[n-1]
		sf.recycled = sf.recycled[:n-1]
		if res := vk.ResetFences(sf.context.Device.LogicalDevice, 1, []vk.Fence{fence}); res != vk.Success {
			return vk.NullFence, fmt.Errorf("failed to reset fence: %s", VulkanResultString(res))
		}
	} else {
		fenceCreateInfo := vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
		}
		if res := vk.CreateFence(sf.context.Device.LogicalDevice, &fenceCreateInfo, sf.context.Allocator, &fence); res != vk.Success {
			return vk.NullFence, fmt.Errorf("failed to create fence: %s", VulkanResultString(res))
		}
	}

	sf.pending = append(sf.pending, pendingFence{value: value, fence: fence})
	return fence, nil
}

// CompletedValue polls the pending fences in order and returns the highest
// value the device has reached.
func (sf *SubmissionFence) CompletedValue() uint64 {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	for len(sf.pending) > 0 {
		head := sf.pending[0]
		if vk.GetFenceStatus(sf.context.Device.LogicalDevice, head.fence) != vk.Success {
			break
		}
		sf.retireHead()
	}
	return sf.completed
}

// retireHead moves the front pending fence to the recycle pool. Caller
// holds the lock.
func (sf *SubmissionFence) retireHead() {
	head := sf.pending[0]
	sf.completed = head.value
	sf.recycled = append(sf.recycled, head.fence)
	sf.pending = sf.pending[1:]
}

// Wait blocks until the device reaches value. A zero timeout waits forever;
// otherwise an elapsed timeout reports a ring stall.
func (sf *SubmissionFence) Wait(value uint64, timeout time.Duration) error {
	sf.mu.Lock()
	if sf.completed >= value {
		sf.mu.Unlock()
		return nil
	}

	// Values complete in order: waiting on the entry holding value covers
	// every earlier one too.
	var target vk.Fence
	for _, p := range sf.pending {
		if p.value == value {
			target = p.fence
			break
		}
	}
	sf.mu.Unlock()

	if target == vk.NullFence {
		return fmt.Errorf("fence value %d was never signalled", value)
	}

	timeoutNs := vk.MaxUint64
	if timeout > 0 {
		timeoutNs = uint64(timeout.Nanoseconds())
	}

	res := vk.WaitForFences(sf.context.Device.LogicalDevice, 1, []vk.Fence{target}, vk.True, timeoutNs)
	switch res {
	case vk.Success:
	case vk.Timeout:
		return fmt.Errorf("timed out after %s: %w", timeout, core.ErrRingStall)
	default:
		return fmt.Errorf("failed waiting for fence: %s", VulkanResultString(res))
	}

	sf.mu.Lock()
	for len(sf.pending) > 0 && sf.pending[0].value <= value {
		sf.retireHead()
	}
	sf.mu.Unlock()
	return nil
}

func (sf *SubmissionFence) Destroy() {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	for _, p := range sf.pending {
		vk.DestroyFence(sf.context.Device.LogicalDevice, p.fence, sf.context.Allocator)
	}
	sf.pending = nil
	for _, f := range sf.recycled {
		vk.DestroyFence(sf.context.Device.LogicalDevice, f, sf.context.Allocator)
	}
	sf.recycled = nil
}
