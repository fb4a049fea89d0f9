package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/citadel/engine/renderer/device"
)

// DescriptorSetLayoutCreate builds the single-uniform-buffer layout shared
// by the pass and object sets.
func DescriptorSetLayoutCreate(context *VulkanContext) (vk.DescriptorSetLayout, error) {
	binding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
	}

	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &layout); res != vk.Success {
		return vk.NullDescriptorSetLayout, fmt.Errorf("failed to create descriptor set layout: %s", VulkanResultString(res))
	}
	return layout, nil
}

// BuildDescriptorSets allocates one descriptor set per table entry and
// points each at its record in the per-slot upload buffers. The table
// layout mirrors the renderer's offset arithmetic: every slot's object
// records first, then one pass record per slot.
func BuildDescriptorSets(context *VulkanContext, layout vk.DescriptorSetLayout,
	config *device.DescriptorConfig) (vk.DescriptorPool, []vk.DescriptorSet, error) {

	slotCount := uint32(len(config.ObjectBuffers))
	totalSets := slotCount*config.ObjectCount + uint32(len(config.PassBuffers))

	poolSize := vk.DescriptorPoolSize{
		Type:            vk.DescriptorTypeUniformBuffer,
		DescriptorCount: totalSets,
	}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: 1,
		PPoolSizes:    []vk.DescriptorPoolSize{poolSize},
		MaxSets:       totalSets,
	}

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		return vk.NullDescriptorPool, nil, fmt.Errorf("failed to create descriptor pool: %s", VulkanResultString(res))
	}

	layouts := make([]vk.DescriptorSetLayout, totalSets)
	for i := range layouts {
		layouts[i] = layout
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: totalSets,
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, totalSets)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &sets[0]); res != vk.Success {
		return vk.NullDescriptorPool, nil, fmt.Errorf("failed to allocate descriptor sets: %s", VulkanResultString(res))
	}

	write := func(set vk.DescriptorSet, upload device.UploadBuffer, record uint32) error {
		ub, ok := upload.(*VulkanUploadBuffer)
		if !ok {
			return fmt.Errorf("upload buffer does not belong to the vulkan backend")
		}
		bufferInfo := vk.DescriptorBufferInfo{
			Buffer: ub.Buffer().Handle,
			Offset: vk.DeviceSize(record) * vk.DeviceSize(ub.AlignedStride()),
			Range:  vk.DeviceSize(ub.Stride()),
		}
		descriptorWrite := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
		}
		vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{descriptorWrite}, 0, nil)
		return nil
	}

	for slot := uint32(0); slot < slotCount; slot++ {
		for object := uint32(0); object < config.ObjectCount; object++ {
			if err := write(sets[slot*config.ObjectCount+object], config.ObjectBuffers[slot], object); err != nil {
				return vk.NullDescriptorPool, nil, err
			}
		}
	}
	passBase := slotCount * config.ObjectCount
	for slot := range config.PassBuffers {
		if err := write(sets[passBase+uint32(slot)], config.PassBuffers[slot], 0); err != nil {
			return vk.NullDescriptorPool, nil, err
		}
	}

	return pool, sets, nil
}
