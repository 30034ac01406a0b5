package vulkan

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

// SurfaceProvider is the window the swapchain presents to.
type SurfaceProvider interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (uintptr, error)
}

// GraphicsContext owns the instance, device, swapchain and per-frame
// synchronisation. Everything that records GPU work receives it explicitly.
type GraphicsContext struct {
	window                  SurfaceProvider
	FrameNumber             uint64
	context                 *VulkanContext
	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	debug bool
}

func New(window SurfaceProvider, framesInFlight uint32, debug bool) *GraphicsContext {
	if framesInFlight == 0 {
		framesInFlight = 2
	}
	return &GraphicsContext{
		window: window,
		context: &VulkanContext{
			FramesInFlight: framesInFlight,
			Allocator:      nil,
		},
		debug: debug,
	}
}

// Context exposes the low level state to the resource and pipeline helpers.
func (gc *GraphicsContext) Context() *VulkanContext {
	return gc.context
}

func (gc *GraphicsContext) Extent() (uint32, uint32) {
	return gc.context.FramebufferWidth, gc.context.FramebufferHeight
}

// SwapchainFormat is the color format of the presentable images.
func (gc *GraphicsContext) SwapchainFormat() vk.Format {
	return gc.context.Swapchain.ImageFormat.Format
}

func (gc *GraphicsContext) Initialize(appName string, appWidth, appHeight uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogError("%s", err)
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	gc.context.FramebufferWidth = appWidth
	gc.context.FramebufferHeight = appHeight

	if err := gc.createInstance(appName); err != nil {
		return err
	}

	if gc.debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(gc.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		gc.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := gc.window.CreateSurface(gc.context.Instance)
	if err != nil {
		core.LogError("Failed to create platform surface: %s", err)
		return err
	}
	gc.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(gc.context); err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	sc, err := SwapchainCreate(gc.context, gc.context.FramebufferWidth, gc.context.FramebufferHeight)
	if err != nil {
		return err
	}
	gc.context.Swapchain = sc
	gc.context.FramebufferWidth = sc.Extent.Width
	gc.context.FramebufferHeight = sc.Extent.Height

	// The composite draws over the swapchain image the executor already moved to
	// the render target layout.
	rp, err := RenderpassCreate(gc.context, VulkanRenderpassConfig{
		Format:        sc.ImageFormat.Format,
		LoadOp:        vk.AttachmentLoadOpLoad,
		InitialLayout: vk.ImageLayoutColorAttachmentOptimal,
		FinalLayout:   vk.ImageLayoutColorAttachmentOptimal,
	})
	if err != nil {
		return err
	}
	gc.context.MainRenderpass = rp

	if err := gc.regenerateFramebuffers(); err != nil {
		return err
	}

	if err := gc.createCommandBuffers(); err != nil {
		return err
	}

	if err := gc.createSyncObjects(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (gc *GraphicsContext) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Reel"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := append([]string{"VK_KHR_surface"}, gc.window.RequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var requiredLayers []string
	if gc.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		requiredLayers = []string{"VK_LAYER_KHRONOS_validation"}
		if err := checkValidationLayers(requiredLayers); err != nil {
			core.LogError("%s", err)
			return err
		}
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	var instance vk.Instance
	if err := resultError("vkCreateInstance", vk.CreateInstance(&createInfo, gc.context.Allocator, &instance)); err != nil {
		core.LogError("%s", err)
		return err
	}
	gc.context.Instance = instance
	if err := vk.InitInstance(gc.context.Instance); err != nil {
		core.LogError("%s", err)
		return err
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func checkValidationLayers(required []string) error {
	core.LogInfo("Validation layers enabled. Enumerating...")
	var count uint32
	if err := resultError("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return err
	}
	available := make([]vk.LayerProperties, count)
	if err := resultError("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, available)); err != nil {
		return err
	}

	for _, name := range required {
		found := false
		for j := range available {
			available[j].Deref()
			if cString(available[j].LayerName[:]) == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("required validation layer is missing: %s", name)
		}
	}
	core.LogInfo("All required validation layers are present.")
	return nil
}

func (gc *GraphicsContext) createSyncObjects() error {
	frames := gc.context.FramesInFlight
	gc.context.ImageAvailableSemaphores = make([]vk.Semaphore, frames)
	gc.context.QueueCompleteSemaphores = make([]vk.Semaphore, frames)
	gc.context.InFlightFences = make([]*VulkanFence, frames)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := uint32(0); i < frames; i++ {
		if err := resultError("vkCreateSemaphore", vk.CreateSemaphore(gc.context.Device.LogicalDevice, &semaphoreCreateInfo, gc.context.Allocator, &gc.context.ImageAvailableSemaphores[i])); err != nil {
			core.LogError("%s", err)
			return err
		}
		if err := resultError("vkCreateSemaphore", vk.CreateSemaphore(gc.context.Device.LogicalDevice, &semaphoreCreateInfo, gc.context.Allocator, &gc.context.QueueCompleteSemaphores[i])); err != nil {
			core.LogError("%s", err)
			return err
		}

		// Signaled, so the first wait on each frame slot returns immediately.
		f, err := NewFence(gc.context, true)
		if err != nil {
			return err
		}
		gc.context.InFlightFences[i] = f
	}

	// Not owned, they point into InFlightFences.
	gc.context.ImagesInFlight = make([]*VulkanFence, gc.context.Swapchain.ImageCount)
	return nil
}

// WaitIdle blocks until the device finished every submitted frame.
func (gc *GraphicsContext) WaitIdle() error {
	if gc.context.Device == nil || gc.context.Device.LogicalDevice == nil {
		return nil
	}
	return resultError("vkDeviceWaitIdle", vk.DeviceWaitIdle(gc.context.Device.LogicalDevice))
}

func (gc *GraphicsContext) Shutdown() error {
	if gc.context.Device == nil || gc.context.Device.LogicalDevice == nil {
		gc.destroyInstance()
		return nil
	}
	vk.DeviceWaitIdle(gc.context.Device.LogicalDevice)

	// Destroy in the opposite order of creation.
	for i := range gc.context.InFlightFences {
		if gc.context.ImageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(gc.context.Device.LogicalDevice, gc.context.ImageAvailableSemaphores[i], gc.context.Allocator)
			gc.context.ImageAvailableSemaphores[i] = vk.NullSemaphore
		}
		if gc.context.QueueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(gc.context.Device.LogicalDevice, gc.context.QueueCompleteSemaphores[i], gc.context.Allocator)
			gc.context.QueueCompleteSemaphores[i] = vk.NullSemaphore
		}
		gc.context.InFlightFences[i].Destroy(gc.context)
	}
	gc.context.ImageAvailableSemaphores = nil
	gc.context.QueueCompleteSemaphores = nil
	gc.context.InFlightFences = nil
	gc.context.ImagesInFlight = nil

	gc.freeCommandBuffers()

	if gc.context.Swapchain != nil {
		gc.context.Swapchain.SwapchainDestroy(gc.context)
		gc.context.Swapchain = nil
	}

	gc.context.MainRenderpass.RenderpassDestroy(gc.context)

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(gc.context)

	gc.destroyInstance()
	return nil
}

func (gc *GraphicsContext) destroyInstance() {
	if gc.context.Instance == nil {
		return
	}
	core.LogDebug("Destroying Vulkan surface...")
	if gc.context.Surface != vk.NullSurface {
		vk.DestroySurface(gc.context.Instance, gc.context.Surface, gc.context.Allocator)
		gc.context.Surface = vk.NullSurface
	}

	if gc.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(gc.context.Instance, gc.context.debugMessenger, gc.context.Allocator)
		gc.context.debugMessenger = vk.NullDebugReportCallback
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(gc.context.Instance, gc.context.Allocator)
	gc.context.Instance = nil
}

// Resized records the new framebuffer size; the swapchain is recreated by the next BeginFrame.
func (gc *GraphicsContext) Resized(width, height uint32) {
	gc.cachedFramebufferWidth = width
	gc.cachedFramebufferHeight = height
	gc.context.FramebufferSizeGeneration++

	core.LogInfo("Vulkan renderer backend->resized: w/h/gen: %d/%d/%d", width, height, gc.context.FramebufferSizeGeneration)
}

// BeginFrame waits for the frame slot, acquires a swapchain image and starts recording.
// core.ErrSwapchainBooting means no frame was started and the caller should skip rendering.
func (gc *GraphicsContext) BeginFrame() (*VulkanCommandBuffer, error) {
	device := gc.context.Device
	if gc.context.RecreatingSwapchain {
		if err := resultError("vkDeviceWaitIdle", vk.DeviceWaitIdle(device.LogicalDevice)); err != nil {
			core.LogError("%s", err)
			return nil, err
		}
		core.LogInfo("Recreating swapchain, booting.")
		return nil, core.ErrSwapchainBooting
	}

	if gc.context.FramebufferSizeGeneration != gc.context.FramebufferSizeLastGeneration {
		if err := resultError("vkDeviceWaitIdle", vk.DeviceWaitIdle(device.LogicalDevice)); err != nil {
			core.LogError("%s", err)
			return nil, err
		}
		// A minimised window keeps the generation pending until it has a size again.
		if err := gc.recreateSwapchain(); err != nil {
			return nil, err
		}
		core.LogInfo("Resized, booting.")
		return nil, core.ErrSwapchainBooting
	}

	frame := gc.context.CurrentFrame
	if !gc.context.InFlightFences[frame].Wait(gc.context, math.MaxUint64) {
		err := fmt.Errorf("in-flight fence wait failure")
		core.LogWarn("%s", err)
		return nil, err
	}

	imageIndex, err := gc.context.Swapchain.SwapchainAcquireNextImageIndex(gc.context, math.MaxUint64, gc.context.ImageAvailableSemaphores[frame], vk.NullFence)
	if err != nil {
		return nil, err
	}
	gc.context.ImageIndex = imageIndex

	commandBuffer := gc.context.CurrentCommandBuffer()
	if err := commandBuffer.Reset(); err != nil {
		return nil, err
	}
	if err := commandBuffer.Begin(false, false, false); err != nil {
		return nil, err
	}
	return commandBuffer, nil
}

// EndFrame submits the recorded commands and presents the acquired image.
func (gc *GraphicsContext) EndFrame() error {
	frame := gc.context.CurrentFrame
	commandBuffer := gc.context.CurrentCommandBuffer()
	if err := commandBuffer.End(); err != nil {
		return err
	}

	// Make sure the previous frame is not using this image.
	if fence := gc.context.ImagesInFlight[gc.context.ImageIndex]; fence != nil {
		fence.Wait(gc.context, math.MaxUint64)
	}
	gc.context.ImagesInFlight[gc.context.ImageIndex] = gc.context.InFlightFences[frame]

	if err := gc.context.InFlightFences[frame].Reset(gc.context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{gc.context.QueueCompleteSemaphores[frame]},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{gc.context.ImageAvailableSemaphores[frame]},
		// The first use of the acquired image is the transfer stage barrier of the composite.
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) | vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		},
	}
	if err := resultError("vkQueueSubmit", vk.QueueSubmit(gc.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, gc.context.InFlightFences[frame].Handle)); err != nil {
		core.LogError("%s", err)
		return err
	}
	commandBuffer.UpdateSubmitted()

	err := gc.context.Swapchain.SwapchainPresent(gc.context, gc.context.Device.PresentQueue, gc.context.QueueCompleteSemaphores[frame], gc.context.ImageIndex)
	gc.FrameNumber++
	return err
}

// SwapchainTarget returns the acquired image, its framebuffer and the state it is in.
func (gc *GraphicsContext) SwapchainTarget() (vk.Image, *VulkanFramebuffer, metadata.ImageState) {
	sc := gc.context.Swapchain
	index := gc.context.ImageIndex
	return sc.Images[index], sc.Framebuffers[index], sc.ImageState(index)
}

func (gc *GraphicsContext) createCommandBuffers() error {
	gc.freeCommandBuffers()
	gc.context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, gc.context.FramesInFlight)
	for i := range gc.context.GraphicsCommandBuffers {
		cb, err := NewVulkanCommandBuffer(gc.context, gc.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		gc.context.GraphicsCommandBuffers[i] = cb
	}
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (gc *GraphicsContext) freeCommandBuffers() {
	for _, cb := range gc.context.GraphicsCommandBuffers {
		if cb != nil && cb.Handle != nil {
			cb.Free(gc.context, gc.context.Device.GraphicsCommandPool)
		}
	}
	gc.context.GraphicsCommandBuffers = nil
}

func (gc *GraphicsContext) regenerateFramebuffers() error {
	sc := gc.context.Swapchain
	sc.Framebuffers = make([]*VulkanFramebuffer, sc.ImageCount)
	for i := range sc.Views {
		fb, err := FramebufferCreate(gc.context, gc.context.MainRenderpass, sc.Extent.Width, sc.Extent.Height, sc.Views[i])
		if err != nil {
			core.LogError("failed to execute framebuffer create function")
			return err
		}
		sc.Framebuffers[i] = fb
	}
	return nil
}

func (gc *GraphicsContext) recreateSwapchain() error {
	if gc.context.RecreatingSwapchain {
		core.LogDebug("recreate_swapchain called when already recreating. Booting.")
		return nil
	}

	width, height := gc.cachedFramebufferWidth, gc.cachedFramebufferHeight
	if width == 0 || height == 0 {
		core.LogDebug("recreate_swapchain called when window is < 1 in a dimension. Booting.")
		return nil
	}

	gc.context.RecreatingSwapchain = true
	defer func() { gc.context.RecreatingSwapchain = false }()

	vk.DeviceWaitIdle(gc.context.Device.LogicalDevice)

	for i := range gc.context.ImagesInFlight {
		gc.context.ImagesInFlight[i] = nil
	}

	if err := DeviceQuerySwapchainSupport(gc.context.Device.PhysicalDevice, gc.context.Surface, &gc.context.Device.SwapchainSupport); err != nil {
		core.LogError("%s", err)
		return err
	}

	sc, err := gc.context.Swapchain.SwapchainRecreate(gc.context, width, height)
	if err != nil {
		return err
	}
	gc.context.Swapchain = sc
	// Fresh images start undefined.
	sc.ResetPresented()

	gc.context.FramebufferWidth = sc.Extent.Width
	gc.context.FramebufferHeight = sc.Extent.Height
	gc.context.FramebufferSizeLastGeneration = gc.context.FramebufferSizeGeneration

	if len(gc.context.ImagesInFlight) != int(sc.ImageCount) {
		gc.context.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)
	}

	return gc.regenerateFramebuffers()
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
