package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/citadel/engine/core"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	ImageCount  uint32

	Images     []vk.Image
	ImageViews []vk.ImageView

	DepthAttachment *VulkanImage

	Framebuffers []vk.Framebuffer
}

func SwapchainCreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	support, err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, err
	}
	context.Device.SwapchainSupport = support

	imageFormat := support.Formats[0]
	for i := range support.Formats {
		support.Formats[i].Deref()
		if support.Formats[i].Format == vk.FormatB8g8r8a8Unorm &&
			support.Formats[i].ColorSpace == vk.ColorSpaceSrgbNonlinear {
			imageFormat = support.Formats[i]
			break
		}
	}
	imageFormat.Deref()

	presentMode := vk.PresentModeFifo
	for _, mode := range support.PresentModes {
		if mode == vk.PresentModeMailbox {
			presentMode = mode
			break
		}
	}

	extent := vk.Extent2D{Width: width, Height: height}
	if support.Capabilities.CurrentExtent.Width != vk.MaxUint32 {
		support.Capabilities.CurrentExtent.Deref()
		extent = support.Capabilities.CurrentExtent
	}

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      imageFormat.Format,
		ImageColorSpace:  imageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	sc := &VulkanSwapchain{ImageFormat: imageFormat}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, fmt.Errorf("failed to create swapchain: %s", VulkanResultString(res))
	}
	sc.Handle = handle

	var scImageCount uint32
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, sc.Handle, &scImageCount, nil); res != vk.Success {
		return nil, fmt.Errorf("failed to get swapchain image count: %s", VulkanResultString(res))
	}
	sc.ImageCount = scImageCount
	sc.Images = make([]vk.Image, scImageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, sc.Handle, &scImageCount, sc.Images); res != vk.Success {
		return nil, fmt.Errorf("failed to get swapchain images: %s", VulkanResultString(res))
	}

	sc.ImageViews = make([]vk.ImageView, scImageCount)
	for i, img := range sc.Images {
		viewCreateInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   imageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view); res != vk.Success {
			return nil, fmt.Errorf("failed to create swapchain image view: %s", VulkanResultString(res))
		}
		sc.ImageViews[i] = view
	}

	depth, err := ImageCreate(context, extent.Width, extent.Height, context.Device.DepthFormat,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		return nil, fmt.Errorf("depth attachment: %w", err)
	}
	sc.DepthAttachment = depth

	core.LogInfo("Swapchain created with %d images (%dx%d)", sc.ImageCount, extent.Width, extent.Height)
	return sc, nil
}

// CreateFramebuffers builds one framebuffer per swapchain image against the
// main renderpass. Called after the renderpass exists and again on resize.
func (sc *VulkanSwapchain) CreateFramebuffers(context *VulkanContext) error {
	sc.Framebuffers = make([]vk.Framebuffer, sc.ImageCount)
	for i := range sc.ImageViews {
		attachments := []vk.ImageView{sc.ImageViews[i], sc.DepthAttachment.View}

		framebufferCreateInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      context.MainRenderpass.Handle,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           context.FramebufferWidth,
			Height:          context.FramebufferHeight,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &framebuffer); res != vk.Success {
			return fmt.Errorf("failed to create framebuffer %d: %s", i, VulkanResultString(res))
		}
		sc.Framebuffers[i] = framebuffer
	}
	return nil
}

func (sc *VulkanSwapchain) Destroy(context *VulkanContext) {
	for _, framebuffer := range sc.Framebuffers {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, framebuffer, context.Allocator)
	}
	sc.Framebuffers = nil

	if sc.DepthAttachment != nil {
		sc.DepthAttachment.Destroy(context)
		sc.DepthAttachment = nil
	}
	for _, view := range sc.ImageViews {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	sc.ImageViews = nil

	if sc.Handle != nil {
		vk.DestroySwapchain(context.Device.LogicalDevice, sc.Handle, context.Allocator)
		sc.Handle = nil
	}
}

// AcquireNextImage fetches the next presentable image, signalling the given
// semaphore when it is ready. Returns false when the swapchain is out of
// date and must be recreated.
func (sc *VulkanSwapchain) AcquireNextImage(context *VulkanContext, semaphore vk.Semaphore) (uint32, bool, error) {
	var imageIndex uint32
	res := vk.AcquireNextImage(context.Device.LogicalDevice, sc.Handle, vk.MaxUint64, semaphore, vk.NullFence, &imageIndex)
	switch res {
	case vk.Success, vk.Suboptimal:
		return imageIndex, true, nil
	case vk.ErrorOutOfDate:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("failed to acquire swapchain image: %s", VulkanResultString(res))
	}
}

// Present queues the image for presentation after waiting on the render
// complete semaphore. Returns false when the swapchain needs recreating.
func (sc *VulkanSwapchain) Present(context *VulkanContext, waitSemaphore vk.Semaphore, imageIndex uint32) (bool, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{waitSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	res := vk.QueuePresent(context.Device.PresentQueue, &presentInfo)
	switch res {
	case vk.Success:
		return true, nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return false, nil
	default:
		return false, fmt.Errorf("failed to present swapchain image: %s", VulkanResultString(res))
	}
}
