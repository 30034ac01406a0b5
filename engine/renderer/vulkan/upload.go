package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

// ImmediateSubmit records work into a single use command buffer on the graphics queue
// and waits for it to finish.
func ImmediateSubmit(context *VulkanContext, record func(cmd vk.CommandBuffer)) error {
	pool := context.Device.GraphicsCommandPool
	cb, err := AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		return err
	}
	record(cb.Handle)
	return cb.EndSingleUse(context, pool, context.Device.GraphicsQueue)
}

// MipExtent is the size of a mip level, never below one texel.
func MipExtent(size uint32, level uint32) uint32 {
	if s := size >> level; s > 0 {
		return s
	}
	return 1
}

// UploadImage copies one pixel slice per mip level into a freshly created image through a
// staging buffer and leaves every level in the shader resource state.
func UploadImage(context *VulkanContext, image *Image, levels [][]byte) error {
	if image.IsNull() {
		return fmt.Errorf("upload to a null image")
	}
	if len(levels) == 0 || uint32(len(levels)) > image.Spec.MipLevels {
		return fmt.Errorf("upload of %d levels to an image with %d", len(levels), image.Spec.MipLevels)
	}

	var total uint64
	for _, level := range levels {
		total += uint64(len(level))
	}
	staging, err := CreateBuffer(context, metadata.BufferSpec{
		Size:   total,
		Usage:  metadata.BufferUsageTransferSrc,
		Memory: metadata.MemoryUsageHostVisible,
	})
	if err != nil {
		return err
	}
	defer staging.Destroy(context)

	data := make([]byte, 0, total)
	regions := make([]vk.BufferImageCopy, 0, len(levels))
	depth := image.Spec.Depth
	if depth == 0 {
		depth = 1
	}
	for i, level := range levels {
		mip := uint32(i)
		regions = append(regions, vk.BufferImageCopy{
			BufferOffset: vk.DeviceSize(len(data)),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       mip,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
			ImageExtent: vk.Extent3D{
				Width:  MipExtent(image.Spec.Width, mip),
				Height: MipExtent(image.Spec.Height, mip),
				Depth:  MipExtent(depth, mip),
			},
		})
		data = append(data, level...)
	}
	if err := staging.Write(context, data); err != nil {
		return err
	}

	all := ColorRange(0, image.Spec.MipLevels, image.Spec.Layers())
	return ImmediateSubmit(context, func(cmd vk.CommandBuffer) {
		ImageBarrierRange(cmd, image.Handle, metadata.ImageStateUndefined, metadata.ImageStateTransferDst, all)
		vk.CmdCopyBufferToImage(cmd, staging.Handle, image.Handle, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
		ImageBarrierRange(cmd, image.Handle, metadata.ImageStateTransferDst, metadata.ImageStateShaderResource, all)
	})
}
