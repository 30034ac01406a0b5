package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

const (
	// Binding of the uniform block in the pass layout; channels take 0..MaxChannels-1.
	PassUniformBinding = uint32(metadata.MaxChannels)
	// Binding of the terminal image in the composite layout.
	CompositeImageBinding = 0
)

/**
 * @brief A descriptor pool and the layout every set allocated from it uses.
 */
type VulkanDescriptorPool struct {
	Handle vk.DescriptorPool
	Layout vk.DescriptorSetLayout
}

func fragmentBinding(binding uint32, descriptorType vk.DescriptorType) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  descriptorType,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}
}

// PassLayoutBindings lists one combined image sampler per channel followed by the uniform block.
func PassLayoutBindings() []vk.DescriptorSetLayoutBinding {
	bindings := make([]vk.DescriptorSetLayoutBinding, 0, metadata.MaxChannels+1)
	for i := uint32(0); i < metadata.MaxChannels; i++ {
		bindings = append(bindings, fragmentBinding(i, vk.DescriptorTypeCombinedImageSampler))
	}
	return append(bindings, fragmentBinding(PassUniformBinding, vk.DescriptorTypeUniformBuffer))
}

func CompositeLayoutBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{
		fragmentBinding(CompositeImageBinding, vk.DescriptorTypeCombinedImageSampler),
	}
}

func CreateDescriptorSetLayout(context *VulkanContext, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := resultError("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout)); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	return layout, nil
}

func DestroyDescriptorSetLayout(context *VulkanContext, layout vk.DescriptorSetLayout) {
	if layout != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, layout, context.Allocator)
	}
}

// NewDescriptorPool creates a pool able to hold maxSets sets of the given layout.
func NewDescriptorPool(context *VulkanContext, layout vk.DescriptorSetLayout, bindings []vk.DescriptorSetLayoutBinding, maxSets uint32) (*VulkanDescriptorPool, error) {
	counts := map[vk.DescriptorType]uint32{}
	for _, b := range bindings {
		counts[b.DescriptorType] += b.DescriptorCount * maxSets
	}
	sizes := make([]vk.DescriptorPoolSize, 0, len(counts))
	for t, n := range counts {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: n})
	}

	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var handle vk.DescriptorPool
	if err := resultError("vkCreateDescriptorPool", vk.CreateDescriptorPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle)); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	return &VulkanDescriptorPool{Handle: handle, Layout: layout}, nil
}

// Allocate returns count sets that use the pool layout.
func (p *VulkanDescriptorPool) Allocate(context *VulkanContext, count int) ([]vk.DescriptorSet, error) {
	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = p.Layout
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.Handle,
		DescriptorSetCount: uint32(count),
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, count)
	if err := resultError("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &sets[0])); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	return sets, nil
}

// Destroy frees the pool and, implicitly, every set allocated from it.
func (p *VulkanDescriptorPool) Destroy(context *VulkanContext) {
	if p != nil && p.Handle != nil {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, p.Handle, context.Allocator)
		p.Handle = nil
	}
}

// ImageWrite binds a shader readable view at the given binding.
func ImageWrite(set vk.DescriptorSet, binding uint32, descriptorType vk.DescriptorType, view vk.ImageView, sampler vk.Sampler) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  descriptorType,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     sampler,
			ImageView:   view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}
}

func BufferWrite(set vk.DescriptorSet, binding uint32, buffer vk.Buffer) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer,
			Offset: 0,
			Range:  vk.DeviceSize(vk.WholeSize),
		}},
	}
}

func UpdateDescriptorSets(context *VulkanContext, writes []vk.WriteDescriptorSet) {
	if len(writes) == 0 {
		return
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}
