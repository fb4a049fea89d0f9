package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// VulkanBuffer is a raw buffer with its backing memory.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
}

func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags,
	memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, fmt.Errorf("failed to create buffer: %s", VulkanResultString(res))
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryType == -1 {
		return nil, fmt.Errorf("required memory type not found for buffer")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(context.Device.LogicalDevice, handle, context.Allocator)
		return nil, fmt.Errorf("failed to allocate buffer memory: %s", VulkanResultString(res))
	}

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, handle, memory, 0); res != vk.Success {
		return nil, fmt.Errorf("failed to bind buffer memory: %s", VulkanResultString(res))
	}

	return &VulkanBuffer{Handle: handle, Memory: memory, Size: size}, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = nil
	}
	if vb.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = nil
	}
}

// BufferCreateDeviceLocal uploads data into a device-local buffer through a
// host-visible staging buffer and a one-shot transfer submission.
func BufferCreateDeviceLocal(context *VulkanContext, pool vk.CommandPool, data []byte,
	usage vk.BufferUsageFlags) (*VulkanBuffer, error) {

	size := vk.DeviceSize(len(data))

	staging, err := BufferCreate(context, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, fmt.Errorf("staging buffer: %w", err)
	}
	defer staging.Destroy(context)

	var mapped unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, staging.Memory, 0, size, 0, &mapped); res != vk.Success {
		return nil, fmt.Errorf("failed to map staging buffer: %s", VulkanResultString(res))
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(context.Device.LogicalDevice, staging.Memory)

	deviceLocal, err := BufferCreate(context, size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	if err := submitOneShot(context, pool, func(cb vk.CommandBuffer) {
		region := vk.BufferCopy{Size: size}
		vk.CmdCopyBuffer(cb, staging.Handle, deviceLocal.Handle, 1, []vk.BufferCopy{region})
	}); err != nil {
		deviceLocal.Destroy(context)
		return nil, fmt.Errorf("staging copy: %w", err)
	}
	return deviceLocal, nil
}

// submitOneShot records commands into a transient buffer from the pool,
// submits on the graphics queue and blocks until completion.
func submitOneShot(context *VulkanContext, pool vk.CommandPool, record func(vk.CommandBuffer)) error {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	commandBuffers := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, commandBuffers); res != vk.Success {
		return fmt.Errorf("failed to allocate one-shot command buffer: %s", VulkanResultString(res))
	}
	defer vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, commandBuffers)

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(commandBuffers[0], &beginInfo); res != vk.Success {
		return fmt.Errorf("failed to begin one-shot command buffer: %s", VulkanResultString(res))
	}

	record(commandBuffers[0])

	if res := vk.EndCommandBuffer(commandBuffers[0]); res != vk.Success {
		return fmt.Errorf("failed to end one-shot command buffer: %s", VulkanResultString(res))
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    commandBuffers,
	}
	if res := vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
		return fmt.Errorf("failed to submit one-shot command buffer: %s", VulkanResultString(res))
	}
	if res := vk.QueueWaitIdle(context.Device.GraphicsQueue); res != vk.Success {
		return fmt.Errorf("failed waiting for one-shot submission: %s", VulkanResultString(res))
	}
	return nil
}

// VulkanUploadBuffer is a persistently mapped host-visible buffer of fixed
// stride records, aligned to the device's uniform buffer requirement.
type VulkanUploadBuffer struct {
	buffer        *VulkanBuffer
	mapped        unsafe.Pointer
	stride        uint32
	alignedStride uint32
	count         uint32
	logicalDevice vk.Device
}

func UploadBufferCreate(context *VulkanContext, stride, count uint32) (*VulkanUploadBuffer, error) {
	// An empty scene still needs a valid buffer to bind.
	if count == 0 {
		count = 1
	}
	context.Device.Properties.Deref()
	context.Device.Properties.Limits.Deref()
	alignment := uint32(context.Device.Properties.Limits.MinUniformBufferOffsetAlignment)
	alignedStride := stride
	if alignment > 0 {
		alignedStride = (stride + alignment - 1) / alignment * alignment
	}

	size := vk.DeviceSize(alignedStride) * vk.DeviceSize(count)
	buffer, err := BufferCreate(context, size,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	var mapped unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, size, 0, &mapped); res != vk.Success {
		buffer.Destroy(context)
		return nil, fmt.Errorf("failed to map upload buffer: %s", VulkanResultString(res))
	}

	return &VulkanUploadBuffer{
		buffer:        buffer,
		mapped:        mapped,
		stride:        stride,
		alignedStride: alignedStride,
		count:         count,
		logicalDevice: context.Device.LogicalDevice,
	}, nil
}

func (ub *VulkanUploadBuffer) Load(index uint32, data []byte) error {
	if index >= ub.count {
		return fmt.Errorf("upload index %d out of range (count %d)", index, ub.count)
	}
	if uint32(len(data)) != ub.stride {
		return fmt.Errorf("upload record is %d bytes, stride is %d", len(data), ub.stride)
	}
	dst := unsafe.Pointer(uintptr(ub.mapped) + uintptr(index)*uintptr(ub.alignedStride))
	vk.Memcopy(dst, data)
	return nil
}

func (ub *VulkanUploadBuffer) Stride() uint32 { return ub.stride }
func (ub *VulkanUploadBuffer) Count() uint32  { return ub.count }

// AlignedStride is the per-record byte stride after alignment padding.
func (ub *VulkanUploadBuffer) AlignedStride() uint32 { return ub.alignedStride }

// Buffer exposes the underlying handle for descriptor writes.
func (ub *VulkanUploadBuffer) Buffer() *VulkanBuffer { return ub.buffer }

func (ub *VulkanUploadBuffer) Destroy(context *VulkanContext) {
	if ub.mapped != nil {
		vk.UnmapMemory(ub.logicalDevice, ub.buffer.Memory)
		ub.mapped = nil
	}
	ub.buffer.Destroy(context)
}
