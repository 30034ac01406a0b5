package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

type Sampler struct {
	Handle vk.Sampler
	Spec   metadata.SamplerSpec
}

// samplerFilters maps a filter mode to (min/mag filter, mipmap mode).
func samplerFilters(filter metadata.SamplerFilter) (vk.Filter, vk.SamplerMipmapMode) {
	switch filter {
	case metadata.SamplerFilterMipmap:
		return vk.FilterLinear, vk.SamplerMipmapModeLinear
	case metadata.SamplerFilterNearest:
		return vk.FilterNearest, vk.SamplerMipmapModeNearest
	default:
		return vk.FilterLinear, vk.SamplerMipmapModeNearest
	}
}

func samplerAddressMode(wrap metadata.SamplerWrap) vk.SamplerAddressMode {
	if wrap == metadata.SamplerWrapClamp {
		return vk.SamplerAddressModeClampToEdge
	}
	return vk.SamplerAddressModeRepeat
}

func CreateSampler(context *VulkanContext, spec metadata.SamplerSpec) (*Sampler, error) {
	filter, mipmapMode := samplerFilters(spec.Filter)
	addressMode := samplerAddressMode(spec.Wrap)

	var handle vk.Sampler
	ret := vk.CreateSampler(context.Device.LogicalDevice, &vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter,
		MinFilter:               filter,
		MipmapMode:              mipmapMode,
		AddressModeU:            addressMode,
		AddressModeV:            addressMode,
		AddressModeW:            addressMode,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		MinLod:                  0,
		MaxLod:                  math.MaxFloat32,
		BorderColor:             vk.BorderColorFloatTransparentBlack,
		UnnormalizedCoordinates: vk.False,
	}, context.Allocator, &handle)
	if err := resultError("vkCreateSampler", ret); err != nil {
		core.LogError("%s", err)
		return &Sampler{Spec: spec}, err
	}
	return &Sampler{Handle: handle, Spec: spec}, nil
}

func (s *Sampler) Destroy(context *VulkanContext) {
	if s != nil && s.Handle != nil {
		vk.DestroySampler(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}
