package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageStateTable(t *testing.T) {
	tests := []struct {
		state  metadata.ImageState
		stage  vk.PipelineStageFlagBits
		access vk.AccessFlagBits
		layout vk.ImageLayout
	}{
		{metadata.ImageStateUndefined, vk.PipelineStageTopOfPipeBit, 0, vk.ImageLayoutUndefined},
		{metadata.ImageStatePresent, vk.PipelineStageTransferBit, vk.AccessTransferReadBit, vk.ImageLayoutPresentSrc},
		{metadata.ImageStateShaderResource, vk.PipelineStageFragmentShaderBit, vk.AccessShaderReadBit, vk.ImageLayoutShaderReadOnlyOptimal},
		{metadata.ImageStateRenderTarget, vk.PipelineStageColorAttachmentOutputBit, vk.AccessColorAttachmentWriteBit, vk.ImageLayoutColorAttachmentOptimal},
		{metadata.ImageStateTransferSrc, vk.PipelineStageTransferBit, vk.AccessTransferReadBit, vk.ImageLayoutTransferSrcOptimal},
		{metadata.ImageStateTransferDst, vk.PipelineStageTransferBit, vk.AccessTransferWriteBit, vk.ImageLayoutTransferDstOptimal},
	}
	require.Len(t, tests, len(metadata.ImageStates))

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			info := ImageStateInfo(tt.state)
			assert.Equal(t, vk.PipelineStageFlags(tt.stage), info.Stage)
			assert.Equal(t, vk.AccessFlags(tt.access), info.Access)
			assert.Equal(t, tt.layout, info.Layout)
		})
	}
}

func TestBufferStateTable(t *testing.T) {
	assert.Equal(t, vk.AccessFlags(0), BufferStateInfo(metadata.BufferStateUndefined).Access)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit), BufferStateInfo(metadata.BufferStateTransferDst).Access)
	assert.Equal(t, vk.AccessFlags(vk.AccessUniformReadBit), BufferStateInfo(metadata.BufferStateShaderResource).Access)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), BufferStateInfo(metadata.BufferStateShaderResource).Stage)
}

func TestUnknownStatePanics(t *testing.T) {
	assert.Panics(t, func() { ImageStateInfo(metadata.ImageState(42)) })
	assert.Panics(t, func() { BufferStateInfo(metadata.BufferState(-1)) })
}

func TestImageTransitionIsInvertible(t *testing.T) {
	rng := ColorRange(0, 1, 6)
	for _, before := range metadata.ImageStates {
		for _, after := range metadata.ImageStates {
			srcStage, dstStage, forward := imageTransition(nil, before, after, rng)
			backSrc, backDst, backward := imageTransition(nil, after, before, rng)

			assert.Equal(t, srcStage, backDst, "%s -> %s", before, after)
			assert.Equal(t, dstStage, backSrc, "%s -> %s", before, after)
			assert.Equal(t, forward.OldLayout, backward.NewLayout)
			assert.Equal(t, forward.NewLayout, backward.OldLayout)
			assert.Equal(t, forward.SrcAccessMask, backward.DstAccessMask)
			assert.Equal(t, forward.DstAccessMask, backward.SrcAccessMask)
			assert.Equal(t, uint32(6), forward.SubresourceRange.LayerCount)
		}
	}
}

func TestBufferTransitionCoversWholeBuffer(t *testing.T) {
	src, dst, barrier := bufferTransition(nil, metadata.BufferStateTransferDst, metadata.BufferStateShaderResource)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), src)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), dst)
	assert.Equal(t, vk.DeviceSize(vk.WholeSize), barrier.Size)
	assert.Equal(t, vk.DeviceSize(0), barrier.Offset)
	assert.Equal(t, uint32(vk.QueueFamilyIgnored), barrier.SrcQueueFamilyIndex)
}

func TestColorRange(t *testing.T) {
	rng := ColorRange(2, 3, 1)
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), rng.AspectMask)
	assert.Equal(t, uint32(2), rng.BaseMipLevel)
	assert.Equal(t, uint32(3), rng.LevelCount)
	assert.Equal(t, uint32(0), rng.BaseArrayLayer)
	assert.Equal(t, uint32(1), rng.LayerCount)
}

func TestMipExtent(t *testing.T) {
	assert.Equal(t, uint32(256), MipExtent(256, 0))
	assert.Equal(t, uint32(32), MipExtent(256, 3))
	assert.Equal(t, uint32(1), MipExtent(256, 12))
	assert.Equal(t, uint32(1), MipExtent(3, 2))
}

func TestVulkanFormat(t *testing.T) {
	assert.Equal(t, vk.FormatR8g8b8a8Srgb, VulkanFormat(metadata.PixelFormatRGBA8Srgb))
	assert.Equal(t, vk.FormatR8Unorm, VulkanFormat(metadata.PixelFormatR8Unorm))
	assert.Equal(t, vk.FormatR16g16b16a16Sfloat, VulkanFormat(metadata.PixelFormatRGBA16Float))
	assert.Equal(t, vk.FormatUndefined, VulkanFormat(metadata.PixelFormatUndefined))
}

func TestImageTypes(t *testing.T) {
	imageType, viewType, flags := imageTypes(metadata.ImageKindCube)
	assert.Equal(t, vk.ImageType2d, imageType)
	assert.Equal(t, vk.ImageViewTypeCube, viewType)
	assert.NotZero(t, flags&vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit))

	imageType, viewType, _ = imageTypes(metadata.ImageKind3D)
	assert.Equal(t, vk.ImageType3d, imageType)
	assert.Equal(t, vk.ImageViewType3d, viewType)
}

func TestSamplerMapping(t *testing.T) {
	filter, mip := samplerFilters(metadata.SamplerFilterLinear)
	assert.Equal(t, vk.FilterLinear, filter)
	assert.Equal(t, vk.SamplerMipmapModeNearest, mip)

	filter, mip = samplerFilters(metadata.SamplerFilterMipmap)
	assert.Equal(t, vk.FilterLinear, filter)
	assert.Equal(t, vk.SamplerMipmapModeLinear, mip)

	filter, mip = samplerFilters(metadata.SamplerFilterNearest)
	assert.Equal(t, vk.FilterNearest, filter)
	assert.Equal(t, vk.SamplerMipmapModeNearest, mip)

	assert.Equal(t, vk.SamplerAddressModeClampToEdge, samplerAddressMode(metadata.SamplerWrapClamp))
	assert.Equal(t, vk.SamplerAddressModeRepeat, samplerAddressMode(metadata.SamplerWrapRepeat))
}

func TestPassLayoutBindings(t *testing.T) {
	bindings := PassLayoutBindings()
	require.Len(t, bindings, metadata.MaxChannels+1)
	for i := 0; i < metadata.MaxChannels; i++ {
		assert.Equal(t, uint32(i), bindings[i].Binding)
		assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, bindings[i].DescriptorType)
	}
	assert.Equal(t, PassUniformBinding, bindings[metadata.MaxChannels].Binding)
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, bindings[metadata.MaxChannels].DescriptorType)
}

func TestStringHelpers(t *testing.T) {
	assert.Equal(t, "main\x00", VulkanSafeString("main"))
	assert.Equal(t, "main\x00", VulkanSafeString("main\x00"))
	assert.Equal(t, []string{"a\x00", "b\x00"}, VulkanSafeStrings([]string{"a", "b"}))
	assert.Equal(t, "VK_KHR_swapchain", cString([]byte("VK_KHR_swapchain\x00\x00garbage")))

	assert.True(t, VulkanResultIsSuccess(vk.Success))
	assert.True(t, VulkanResultIsSuccess(vk.Suboptimal))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorOutOfDate))
	assert.Equal(t, "VK_ERROR_DEVICE_LOST", VulkanResultString(vk.ErrorDeviceLost, false))
	assert.Contains(t, VulkanResultString(vk.ErrorDeviceLost, true), "device has been lost")
	assert.NoError(t, resultError("vkFoo", vk.Success))
	assert.ErrorContains(t, resultError("vkFoo", vk.ErrorOutOfHostMemory), "vkFoo")
}

func TestSwapchainImageState(t *testing.T) {
	sc := &VulkanSwapchain{Presented: []bool{false, true}}
	assert.Equal(t, metadata.ImageStateUndefined, sc.ImageState(0))
	assert.Equal(t, metadata.ImageStatePresent, sc.ImageState(1))

	sc.ResetPresented()
	assert.Equal(t, metadata.ImageStateUndefined, sc.ImageState(1))
}

func TestShaderModuleInfoSizeInBytes(t *testing.T) {
	info := shaderModuleInfo([]uint32{0x07230203, 0, 1})
	assert.Equal(t, uint64(12), info.CodeSize)
	assert.Len(t, info.PCode, 3)
}
