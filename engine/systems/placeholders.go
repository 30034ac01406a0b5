package systems

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/spaghettifunk/reel/engine/renderer/vulkan"
)

// Placeholders are the 1x1 black images bound to channels that have nothing to sample.
type Placeholders struct {
	Texture *vulkan.Image
	Cubemap *vulkan.Image
	Volume  *vulkan.Image
}

func placeholderSpec(kind metadata.ImageKind) metadata.ImageSpec {
	return metadata.ImageSpec{
		Kind:      kind,
		Format:    metadata.PixelFormatRGBA8Unorm,
		Width:     1,
		Height:    1,
		Depth:     1,
		MipLevels: 1,
		Usage:     metadata.ImageUsageSampled | metadata.ImageUsageTransferDst,
		Memory:    metadata.MemoryUsageDeviceLocal,
	}
}

// CreatePlaceholders allocates the three images and clears them once, leaving them
// in the shader resource state.
func CreatePlaceholders(context *vulkan.VulkanContext) (*Placeholders, error) {
	p := &Placeholders{}
	var err error
	if p.Texture, err = vulkan.CreateImage(context, placeholderSpec(metadata.ImageKind2D)); err != nil {
		p.Destroy(context)
		return nil, err
	}
	if p.Cubemap, err = vulkan.CreateImage(context, placeholderSpec(metadata.ImageKindCube)); err != nil {
		p.Destroy(context)
		return nil, err
	}
	if p.Volume, err = vulkan.CreateImage(context, placeholderSpec(metadata.ImageKind3D)); err != nil {
		p.Destroy(context)
		return nil, err
	}

	err = vulkan.ImmediateSubmit(context, func(cmd vk.CommandBuffer) {
		for _, img := range []*vulkan.Image{p.Texture, p.Cubemap, p.Volume} {
			vulkan.ClearImage(cmd, img.Handle, img.Spec.Layers(), metadata.ImageStateUndefined)
		}
	})
	if err != nil {
		core.LogError("failed to clear placeholder images: %s", err)
		p.Destroy(context)
		return nil, err
	}
	return p, nil
}

// Image returns the placeholder for a binding source, nil for non-placeholder sources.
func (p *Placeholders) Image(source BindingSource) *vulkan.Image {
	switch source {
	case SourcePlaceholder2D:
		return p.Texture
	case SourcePlaceholderCube:
		return p.Cubemap
	case SourcePlaceholderVolume:
		return p.Volume
	default:
		return nil
	}
}

func (p *Placeholders) Destroy(context *vulkan.VulkanContext) {
	if p == nil {
		return
	}
	p.Texture.Destroy(context)
	p.Cubemap.Destroy(context)
	p.Volume.Destroy(context)
}
