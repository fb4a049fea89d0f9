package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/citadel/engine/core"
	"github.com/spaghettifunk/citadel/engine/math"
	"github.com/spaghettifunk/citadel/engine/platform"
	"github.com/spaghettifunk/citadel/engine/renderer/device"
)

// VulkanRenderer implements the device.Backend contract on a real GPU.
type VulkanRenderer struct {
	platform *platform.Platform
	context  *VulkanContext
	fence    *SubmissionFence

	uploadPool vk.CommandPool

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool
	descriptorSets      []vk.DescriptorSet
	pipelineLayout      vk.PipelineLayout

	nextBufferHandle device.BufferHandle
	buffers          map[device.BufferHandle]*VulkanBuffer

	nextPipelineHandle device.PipelineHandle
	pipelines          map[device.PipelineHandle]*VulkanPipeline

	uploadBuffers []*VulkanUploadBuffer
	allocators    []*VulkanCommandAllocator

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	debug bool
}

func New(p *platform.Platform) *VulkanRenderer {
	return &VulkanRenderer{
		platform:  p,
		context:   &VulkanContext{},
		buffers:   make(map[device.BufferHandle]*VulkanBuffer),
		pipelines: make(map[device.PipelineHandle]*VulkanPipeline),
		debug:     true,
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint64, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] %s", pLayerPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] %s", pLayerPrefix, pMessage)
	default:
		core.LogDebug("[%s] %s", pLayerPrefix, pMessage)
	}
	return vk.Bool32(vk.False)
}

func (vr *VulkanRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	vr.context.FramebufferWidth = appWidth
	vr.context.FramebufferHeight = appHeight

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Citadel Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}
	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	validationLayers := []string{}
	if vr.debug {
		validationLayers = append(validationLayers, "VK_LAYER_KHRONOS_validation")
		if err := verifyValidationLayers(validationLayers); err != nil {
			core.LogWarn("%s; continuing without validation", err)
			validationLayers = validationLayers[:0]
		}
	}
	createInfo.EnabledLayerCount = uint32(len(validationLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed to create Vulkan instance: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan instance created.")

	if vr.debug && len(validationLayers) > 0 {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vr.context.debugMessenger = dbg
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		core.LogError("failed to create platform surface: %s", err)
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)

	if err := DeviceCreate(vr.context); err != nil {
		core.LogError("failed to create device: %s", err)
		return err
	}

	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	// Clear to light steel blue.
	rp, err := RenderpassCreate(vr.context, [4]float32{0.69, 0.77, 0.87, 1.0})
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = rp

	if err := sc.CreateFramebuffers(vr.context); err != nil {
		return err
	}

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
		QueueFamilyIndex: uint32(vr.context.Device.GraphicsQueueIndex),
	}
	var uploadPool vk.CommandPool
	if res := vk.CreateCommandPool(vr.context.Device.LogicalDevice, &poolCreateInfo, vr.context.Allocator, &uploadPool); res != vk.Success {
		return fmt.Errorf("failed to create upload command pool: %s", VulkanResultString(res))
	}
	vr.uploadPool = uploadPool

	if err := vr.createSemaphores(); err != nil {
		return err
	}

	layout, err := DescriptorSetLayoutCreate(vr.context)
	if err != nil {
		return err
	}
	vr.descriptorSetLayout = layout

	layoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 2,
		PSetLayouts:    []vk.DescriptorSetLayout{layout, layout},
	}
	var pipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(vr.context.Device.LogicalDevice, &layoutCreateInfo, vr.context.Allocator, &pipelineLayout); res != vk.Success {
		return fmt.Errorf("failed to create pipeline layout: %s", VulkanResultString(res))
	}
	vr.pipelineLayout = pipelineLayout

	vr.fence = NewSubmissionFence(vr.context)

	core.LogInfo("Vulkan backend initialized.")
	return nil
}

func verifyValidationLayers(required []string) error {
	var availableLayerCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
		return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
	}
	availableLayers := make([]vk.LayerProperties, availableLayerCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
		return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res))
	}

	for _, name := range required {
		found := false
		for i := range availableLayers {
			availableLayers[i].Deref()
			end := FindFirstZeroInByteArray(availableLayers[i].LayerName[:])
			if name == vk.ToString(availableLayers[i].LayerName[:end+1]) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("required validation layer is missing: %s", name)
		}
	}
	return nil
}

func (vr *VulkanRenderer) createSemaphores() error {
	count := int(vr.context.Swapchain.ImageCount)
	vr.context.ImageAvailableSemaphores = make([]vk.Semaphore, count)
	vr.context.QueueCompleteSemaphores = make([]vk.Semaphore, count)

	for i := 0; i < count; i++ {
		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		var imageAvailable, queueComplete vk.Semaphore
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &imageAvailable); res != vk.Success {
			return fmt.Errorf("failed to create semaphore: %s", VulkanResultString(res))
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &queueComplete); res != vk.Success {
			return fmt.Errorf("failed to create semaphore: %s", VulkanResultString(res))
		}
		vr.context.ImageAvailableSemaphores[i] = imageAvailable
		vr.context.QueueCompleteSemaphores[i] = queueComplete
	}
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	for _, pipeline := range vr.pipelines {
		pipeline.Destroy(vr.context)
	}
	if vr.pipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(vr.context.Device.LogicalDevice, vr.pipelineLayout, vr.context.Allocator)
	}
	if vr.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(vr.context.Device.LogicalDevice, vr.descriptorPool, vr.context.Allocator)
	}
	if vr.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(vr.context.Device.LogicalDevice, vr.descriptorSetLayout, vr.context.Allocator)
	}

	for _, allocator := range vr.allocators {
		allocator.Destroy()
	}
	for _, upload := range vr.uploadBuffers {
		upload.Destroy(vr.context)
	}
	for _, buffer := range vr.buffers {
		buffer.Destroy(vr.context)
	}
	if vr.fence != nil {
		vr.fence.Destroy()
	}

	for _, semaphore := range vr.context.ImageAvailableSemaphores {
		vk.DestroySemaphore(vr.context.Device.LogicalDevice, semaphore, vr.context.Allocator)
	}
	for _, semaphore := range vr.context.QueueCompleteSemaphores {
		vk.DestroySemaphore(vr.context.Device.LogicalDevice, semaphore, vr.context.Allocator)
	}

	if vr.uploadPool != vk.NullCommandPool {
		vk.DestroyCommandPool(vr.context.Device.LogicalDevice, vr.uploadPool, vr.context.Allocator)
	}
	if vr.context.MainRenderpass != nil {
		vr.context.MainRenderpass.Destroy(vr.context)
	}
	if vr.context.Swapchain != nil {
		vr.context.Swapchain.Destroy(vr.context)
	}
	DeviceDestroy(vr.context)

	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
	}
	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
	}
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
	core.LogInfo("Vulkan backend shut down.")
	return nil
}

// Resized caches the new extent; the swapchain is rebuilt before the next
// acquire.
func (vr *VulkanRenderer) Resized(width, height uint16) error {
	vr.cachedFramebufferWidth = uint32(width)
	vr.cachedFramebufferHeight = uint32(height)
	vr.context.RecreatingSwapchain = true
	return nil
}

func (vr *VulkanRenderer) recreateSwapchain() error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	vr.context.Swapchain.Destroy(vr.context)

	vr.context.FramebufferWidth = vr.cachedFramebufferWidth
	vr.context.FramebufferHeight = vr.cachedFramebufferHeight

	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return fmt.Errorf("swapchain recreation: %w", err)
	}
	vr.context.Swapchain = sc
	if err := sc.CreateFramebuffers(vr.context); err != nil {
		return err
	}
	vr.context.RecreatingSwapchain = false
	return nil
}

func vertexBytes(vertices []math.Vertex3D) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(unsafe.Sizeof(vertices[0])))
}

func indexBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}

func (vr *VulkanRenderer) CreateVertexBuffer(vertices []math.Vertex3D) (device.BufferHandle, error) {
	buffer, err := BufferCreateDeviceLocal(vr.context, vr.uploadPool, vertexBytes(vertices),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return 0, fmt.Errorf("vertex buffer: %w", err)
	}
	return vr.storeBuffer(buffer), nil
}

func (vr *VulkanRenderer) CreateIndexBuffer(indices []uint32) (device.BufferHandle, error) {
	buffer, err := BufferCreateDeviceLocal(vr.context, vr.uploadPool, indexBytes(indices),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		return 0, fmt.Errorf("index buffer: %w", err)
	}
	return vr.storeBuffer(buffer), nil
}

func (vr *VulkanRenderer) storeBuffer(buffer *VulkanBuffer) device.BufferHandle {
	handle := vr.nextBufferHandle
	vr.nextBufferHandle++
	vr.buffers[handle] = buffer
	return handle
}

func (vr *VulkanRenderer) CreateUploadBuffer(stride, count uint32) (device.UploadBuffer, error) {
	upload, err := UploadBufferCreate(vr.context, stride, count)
	if err != nil {
		return nil, err
	}
	vr.uploadBuffers = append(vr.uploadBuffers, upload)
	return upload, nil
}

func (vr *VulkanRenderer) CreateCommandAllocator() (device.CommandAllocator, error) {
	allocator, err := CommandAllocatorCreate(vr.context)
	if err != nil {
		return nil, err
	}
	vr.allocators = append(vr.allocators, allocator)
	return allocator, nil
}

func (vr *VulkanRenderer) CreatePipeline(config *device.PipelineConfig) (device.PipelineHandle, error) {
	pipeline, err := PipelineCreate(vr.context, vr.pipelineLayout, config)
	if err != nil {
		return 0, err
	}
	handle := vr.nextPipelineHandle
	vr.nextPipelineHandle++
	vr.pipelines[handle] = pipeline
	core.LogDebug("pipeline %q created", config.Name)
	return handle, nil
}

func (vr *VulkanRenderer) BuildDescriptorTable(config *device.DescriptorConfig) error {
	pool, sets, err := BuildDescriptorSets(vr.context, vr.descriptorSetLayout, config)
	if err != nil {
		return err
	}
	vr.descriptorPool = pool
	vr.descriptorSets = sets
	return nil
}

func (vr *VulkanRenderer) BeginFrame(allocator device.CommandAllocator, pipeline device.PipelineHandle) (device.CommandRecorder, error) {
	ca, ok := allocator.(*VulkanCommandAllocator)
	if !ok {
		return nil, fmt.Errorf("command allocator does not belong to the vulkan backend")
	}
	vp, ok := vr.pipelines[pipeline]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline handle %d", pipeline)
	}

	if vr.context.RecreatingSwapchain {
		if err := vr.recreateSwapchain(); err != nil {
			return nil, err
		}
	}

	imageIndex, ok, err := vr.context.Swapchain.AcquireNextImage(vr.context,
		vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame])
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := vr.recreateSwapchain(); err != nil {
			return nil, err
		}
		imageIndex, _, err = vr.context.Swapchain.AcquireNextImage(vr.context,
			vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame])
		if err != nil {
			return nil, err
		}
	}
	vr.context.ImageIndex = imageIndex

	if err := ca.Reset(); err != nil {
		return nil, err
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(ca.Buffer, &beginInfo); res != vk.Success {
		return nil, fmt.Errorf("failed to begin command buffer: %s", VulkanResultString(res))
	}

	vr.context.MainRenderpass.Begin(ca.Buffer, vr.context.Swapchain.Framebuffers[imageIndex],
		vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	vk.CmdBindPipeline(ca.Buffer, vk.PipelineBindPointGraphics, vp.Handle)

	return &commandRecorder{
		backend:       vr,
		commandBuffer: ca.Buffer,
		imageIndex:    imageIndex,
	}, nil
}

func (vr *VulkanRenderer) Submit(rec device.CommandRecorder) error {
	r, ok := rec.(*commandRecorder)
	if !ok {
		return fmt.Errorf("recorder does not belong to the vulkan backend")
	}
	if !r.closed {
		return fmt.Errorf("recorder submitted before Close")
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{r.commandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vr.context.QueueCompleteSemaphores[vr.context.CurrentFrame]},
	}
	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
		return fmt.Errorf("failed to submit frame: %s", VulkanResultString(res))
	}
	return nil
}

func (vr *VulkanRenderer) Present() error {
	ok, err := vr.context.Swapchain.Present(vr.context,
		vr.context.QueueCompleteSemaphores[vr.context.CurrentFrame], vr.context.ImageIndex)
	if err != nil {
		return err
	}
	if !ok {
		vr.context.RecreatingSwapchain = true
	}
	vr.context.CurrentFrame = (vr.context.CurrentFrame + 1) % vr.context.Swapchain.ImageCount
	return nil
}

func (vr *VulkanRenderer) Fence() device.Fence { return vr.fence }

// SignalFence submits an empty batch carrying a VkFence. Queue submission
// order guarantees the fence signals only after all previously submitted
// frame work has finished.
func (vr *VulkanRenderer) SignalFence(value uint64) error {
	fence, err := vr.fence.Register(value)
	if err != nil {
		return err
	}
	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 0, nil, fence); res != vk.Success {
		return fmt.Errorf("failed to signal fence value %d: %s", value, VulkanResultString(res))
	}
	return nil
}
