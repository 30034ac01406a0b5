package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

/**
 * @brief The synchronisation scope of a logical resource state.
 */
type StateInfo struct {
	Stage  vk.PipelineStageFlags
	Access vk.AccessFlags
	/** @brief Image layout, undefined for buffers. */
	Layout vk.ImageLayout
}

var imageStateTable = map[metadata.ImageState]StateInfo{
	metadata.ImageStateUndefined: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		Access: 0,
		Layout: vk.ImageLayoutUndefined,
	},
	metadata.ImageStatePresent: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		Access: vk.AccessFlags(vk.AccessTransferReadBit),
		Layout: vk.ImageLayoutPresentSrc,
	},
	metadata.ImageStateShaderResource: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		Access: vk.AccessFlags(vk.AccessShaderReadBit),
		Layout: vk.ImageLayoutShaderReadOnlyOptimal,
	},
	metadata.ImageStateRenderTarget: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		Access: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		Layout: vk.ImageLayoutColorAttachmentOptimal,
	},
	metadata.ImageStateTransferSrc: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		Access: vk.AccessFlags(vk.AccessTransferReadBit),
		Layout: vk.ImageLayoutTransferSrcOptimal,
	},
	metadata.ImageStateTransferDst: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		Access: vk.AccessFlags(vk.AccessTransferWriteBit),
		Layout: vk.ImageLayoutTransferDstOptimal,
	},
}

var bufferStateTable = map[metadata.BufferState]StateInfo{
	metadata.BufferStateUndefined: {
		Stage: vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
	},
	metadata.BufferStateTransferSrc: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		Access: vk.AccessFlags(vk.AccessTransferReadBit),
	},
	metadata.BufferStateTransferDst: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		Access: vk.AccessFlags(vk.AccessTransferWriteBit),
	},
	metadata.BufferStateShaderResource: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		Access: vk.AccessFlags(vk.AccessUniformReadBit),
	},
}

// ImageStateInfo looks up the stage, access and layout of an image state.
// Unknown states panic: they can only come from a programming error.
func ImageStateInfo(state metadata.ImageState) StateInfo {
	info, ok := imageStateTable[state]
	if !ok {
		panic("vulkan: unknown image state " + state.String())
	}
	return info
}

// BufferStateInfo looks up the stage and access of a buffer state.
func BufferStateInfo(state metadata.BufferState) StateInfo {
	info, ok := bufferStateTable[state]
	if !ok {
		panic("vulkan: unknown buffer state " + state.String())
	}
	return info
}

// ColorRange covers the first layers of the first mip level of a color image.
func ColorRange(baseMip, mipLevels, layers uint32) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   baseMip,
		LevelCount:     mipLevels,
		BaseArrayLayer: 0,
		LayerCount:     layers,
	}
}

// imageTransition builds the barrier and the stage masks for one transition.
func imageTransition(image vk.Image, before, after metadata.ImageState, rng vk.ImageSubresourceRange) (vk.PipelineStageFlags, vk.PipelineStageFlags, vk.ImageMemoryBarrier) {
	src := ImageStateInfo(before)
	dst := ImageStateInfo(after)
	return src.Stage, dst.Stage, vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       src.Access,
		DstAccessMask:       dst.Access,
		OldLayout:           src.Layout,
		NewLayout:           dst.Layout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange:    rng,
	}
}

func bufferTransition(buffer vk.Buffer, before, after metadata.BufferState) (vk.PipelineStageFlags, vk.PipelineStageFlags, vk.BufferMemoryBarrier) {
	src := BufferStateInfo(before)
	dst := BufferStateInfo(after)
	return src.Stage, dst.Stage, vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       src.Access,
		DstAccessMask:       dst.Access,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buffer,
		Offset:              0,
		Size:                vk.DeviceSize(vk.WholeSize),
	}
}

// ImageBarrier transitions the first mip of every layer of an image with a single barrier.
func ImageBarrier(cmd vk.CommandBuffer, image vk.Image, before, after metadata.ImageState, layers uint32) {
	ImageBarrierRange(cmd, image, before, after, ColorRange(0, 1, layers))
}

// ImageBarrierRange transitions an explicit subresource range with a single barrier.
func ImageBarrierRange(cmd vk.CommandBuffer, image vk.Image, before, after metadata.ImageState, rng vk.ImageSubresourceRange) {
	srcStage, dstStage, barrier := imageTransition(image, before, after, rng)
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier})
}

// BufferBarrier transitions the whole buffer with a single barrier.
func BufferBarrier(cmd vk.CommandBuffer, buffer vk.Buffer, before, after metadata.BufferState) {
	srcStage, dstStage, barrier := bufferTransition(buffer, before, after)
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0,
		0, nil,
		1, []vk.BufferMemoryBarrier{barrier},
		0, nil)
}

// ClearImage zeroes every layer of an image and leaves it readable by shaders.
func ClearImage(cmd vk.CommandBuffer, image vk.Image, layers uint32, before metadata.ImageState) {
	rng := ColorRange(0, 1, layers)
	ImageBarrierRange(cmd, image, before, metadata.ImageStateTransferDst, rng)
	var black vk.ClearColorValue
	vk.CmdClearColorImage(cmd, image, vk.ImageLayoutTransferDstOptimal, &black, 1, []vk.ImageSubresourceRange{rng})
	ImageBarrierRange(cmd, image, metadata.ImageStateTransferDst, metadata.ImageStateShaderResource, rng)
}
