package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/citadel/engine/renderer/device"
)

// VulkanCommandAllocator owns a command pool and the single primary buffer
// recorded from it. Resetting the pool reclaims the frame's recording
// memory in one call.
type VulkanCommandAllocator struct {
	context *VulkanContext

	Pool   vk.CommandPool
	Buffer vk.CommandBuffer
}

func CommandAllocatorCreate(context *VulkanContext) (*VulkanCommandAllocator, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
	}

	var pool vk.CommandPool
	if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		return nil, fmt.Errorf("failed to create command pool: %s", VulkanResultString(res))
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	commandBuffers := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, commandBuffers); res != vk.Success {
		vk.DestroyCommandPool(context.Device.LogicalDevice, pool, context.Allocator)
		return nil, fmt.Errorf("failed to allocate command buffer: %s", VulkanResultString(res))
	}

	return &VulkanCommandAllocator{
		context: context,
		Pool:    pool,
		Buffer:  commandBuffers[0],
	}, nil
}

func (ca *VulkanCommandAllocator) Reset() error {
	if res := vk.ResetCommandPool(ca.context.Device.LogicalDevice, ca.Pool, 0); res != vk.Success {
		return fmt.Errorf("failed to reset command pool: %s", VulkanResultString(res))
	}
	return nil
}

func (ca *VulkanCommandAllocator) Destroy() {
	if ca.Pool != nil {
		vk.DestroyCommandPool(ca.context.Device.LogicalDevice, ca.Pool, ca.context.Allocator)
		ca.Pool = nil
	}
}

// commandRecorder records the frame's draws into the allocator's primary
// buffer. Descriptor offsets index the flat set table built by
// BuildDescriptorTable.
type commandRecorder struct {
	backend       *VulkanRenderer
	commandBuffer vk.CommandBuffer
	imageIndex    uint32
	closed        bool
}

func (r *commandRecorder) SetViewport(width, height uint32) {
	// Flip the viewport so +Y is up, matching the projection convention.
	viewport := vk.Viewport{
		X:        0,
		Y:        float32(height),
		Width:    float32(width),
		Height:   -float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(r.commandBuffer, 0, 1, []vk.Viewport{viewport})

	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: width, Height: height},
	}
	vk.CmdSetScissor(r.commandBuffer, 0, 1, []vk.Rect2D{scissor})
}

func (r *commandRecorder) BindGeometry(vertexBuffer, indexBuffer device.BufferHandle) {
	vb := r.backend.buffers[vertexBuffer]
	ib := r.backend.buffers[indexBuffer]
	vk.CmdBindVertexBuffers(r.commandBuffer, 0, 1, []vk.Buffer{vb.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(r.commandBuffer, ib.Handle, 0, vk.IndexTypeUint32)
}

func (r *commandRecorder) SetTopology(topology device.Topology) {
	// The pipelines are built for triangle lists; anything else is a scene
	// construction bug.
	if topology != device.TopologyTriangleList {
		panic(fmt.Sprintf("unsupported topology %d", topology))
	}
}

func (r *commandRecorder) BindPassData(descriptorOffset uint32) {
	vk.CmdBindDescriptorSets(r.commandBuffer, vk.PipelineBindPointGraphics,
		r.backend.pipelineLayout, passSetIndex, 1,
		[]vk.DescriptorSet{r.backend.descriptorSets[descriptorOffset]}, 0, nil)
}

func (r *commandRecorder) BindObjectData(descriptorOffset uint32) {
	vk.CmdBindDescriptorSets(r.commandBuffer, vk.PipelineBindPointGraphics,
		r.backend.pipelineLayout, objectSetIndex, 1,
		[]vk.DescriptorSet{r.backend.descriptorSets[descriptorOffset]}, 0, nil)
}

func (r *commandRecorder) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	vk.CmdDrawIndexed(r.commandBuffer, indexCount, 1, startIndex, baseVertex, 0)
}

func (r *commandRecorder) Close() error {
	r.backend.context.MainRenderpass.End(r.commandBuffer)
	if res := vk.EndCommandBuffer(r.commandBuffer); res != vk.Success {
		return fmt.Errorf("failed to end command buffer: %s", VulkanResultString(res))
	}
	r.closed = true
	return nil
}
