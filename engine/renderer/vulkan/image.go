package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

var (
	ErrNoMemoryType      = errors.New("no compatible memory type")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
)

/**
 * @brief A device image with its own memory allocation and view.
 * A destroyed or failed image has every handle set to nil.
 */
type Image struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Spec   metadata.ImageSpec
}

// VulkanFormat maps a pixel format to its Vulkan counterpart.
func VulkanFormat(format metadata.PixelFormat) vk.Format {
	switch format {
	case metadata.PixelFormatRGBA8Srgb:
		return vk.FormatR8g8b8a8Srgb
	case metadata.PixelFormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case metadata.PixelFormatRGB8Unorm:
		return vk.FormatR8g8b8Unorm
	case metadata.PixelFormatRG8Unorm:
		return vk.FormatR8g8Unorm
	case metadata.PixelFormatR8Unorm:
		return vk.FormatR8Unorm
	case metadata.PixelFormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat
	default:
		return vk.FormatUndefined
	}
}

func memoryProperties(usage metadata.MemoryUsage) vk.MemoryPropertyFlags {
	if usage == metadata.MemoryUsageHostVisible {
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	}
	return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
}

func imageUsage(usage metadata.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlags
	if usage&metadata.ImageUsageSampled != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if usage&metadata.ImageUsageTransferSrc != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}
	if usage&metadata.ImageUsageTransferDst != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	}
	if usage&metadata.ImageUsageColorAttachment != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	return flags
}

func imageTypes(kind metadata.ImageKind) (vk.ImageType, vk.ImageViewType, vk.ImageCreateFlags) {
	switch kind {
	case metadata.ImageKindCube:
		return vk.ImageType2d, vk.ImageViewTypeCube, vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	case metadata.ImageKind3D:
		return vk.ImageType3d, vk.ImageViewType3d, 0
	default:
		return vk.ImageType2d, vk.ImageViewType2d, 0
	}
}

// CreateImage creates an image, allocates and binds its memory and creates its view.
// On failure everything created so far is released and a null image is returned with the error.
func CreateImage(context *VulkanContext, spec metadata.ImageSpec) (*Image, error) {
	out := &Image{Spec: spec}

	format := VulkanFormat(spec.Format)
	if format == vk.FormatUndefined {
		return out, fmt.Errorf("%w: %d", ErrUnsupportedFormat, spec.Format)
	}
	depth, mips := spec.Depth, spec.MipLevels
	if depth == 0 {
		depth = 1
	}
	if mips == 0 {
		mips = 1
	}
	imageType, viewType, flags := imageTypes(spec.Kind)
	device := context.Device.LogicalDevice

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     flags,
		ImageType: imageType,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  spec.Width,
			Height: spec.Height,
			Depth:  depth,
		},
		MipLevels:     mips,
		ArrayLayers:   spec.Layers(),
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsage(spec.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var handle vk.Image
	if err := resultError("vkCreateImage", vk.CreateImage(device, &imageCreateInfo, context.Allocator, &handle)); err != nil {
		core.LogError("%s", err)
		return out, err
	}
	out.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, out.Handle, &requirements)
	requirements.Deref()

	memoryType := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryProperties(spec.Memory))
	if memoryType < 0 {
		out.Destroy(context)
		return out, fmt.Errorf("image %dx%dx%d: %w", spec.Width, spec.Height, depth, ErrNoMemoryType)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if err := resultError("vkAllocateMemory", vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory)); err != nil {
		core.LogError("%s", err)
		out.Destroy(context)
		return out, err
	}
	out.Memory = memory

	if err := resultError("vkBindImageMemory", vk.BindImageMemory(device, out.Handle, out.Memory, 0)); err != nil {
		core.LogError("%s", err)
		out.Destroy(context)
		return out, err
	}

	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            out.Handle,
		ViewType:         viewType,
		Format:           format,
		SubresourceRange: ColorRange(0, mips, spec.Layers()),
	}
	var view vk.ImageView
	if err := resultError("vkCreateImageView", vk.CreateImageView(device, &viewCreateInfo, context.Allocator, &view)); err != nil {
		core.LogError("%s", err)
		out.Destroy(context)
		return out, err
	}
	out.View = view

	return out, nil
}

// Destroy releases the view, then the image, then the memory. Calling it on a nil or
// already destroyed image does nothing.
func (img *Image) Destroy(context *VulkanContext) {
	if img == nil {
		return
	}
	device := context.Device.LogicalDevice
	if img.View != nil {
		vk.DestroyImageView(device, img.View, context.Allocator)
		img.View = nil
	}
	if img.Handle != nil {
		vk.DestroyImage(device, img.Handle, context.Allocator)
		img.Handle = nil
	}
	if img.Memory != nil {
		vk.FreeMemory(device, img.Memory, context.Allocator)
		img.Memory = nil
	}
}

// IsNull reports whether the image holds no device object.
func (img *Image) IsNull() bool {
	return img == nil || (img.Handle == nil && img.Memory == nil && img.View == nil)
}
