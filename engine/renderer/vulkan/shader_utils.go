package vulkan

import (
	"encoding/binary"
	"fmt"
	"os"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/citadel/engine/core"
)

// LoadShaderModule reads a compiled SPIR-V file and wraps it in a shader
// module.
func LoadShaderModule(context *VulkanContext, path string) (vk.ShaderModule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		core.LogError("unable to read shader module %s: %s", path, err)
		return vk.NullShaderModule, err
	}
	if len(raw)%4 != 0 {
		return vk.NullShaderModule, fmt.Errorf("shader %s is not valid SPIR-V: %d bytes", path, len(raw))
	}

	code := make([]uint32, len(raw)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(raw)),
		PCode:    code,
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		return vk.NullShaderModule, fmt.Errorf("failed to create shader module %s: %s", path, VulkanResultString(res))
	}
	return module, nil
}
