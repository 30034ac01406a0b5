package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/core"
)

/**
 * @brief Holds a Vulkan pipeline. The layout is shared and owned by whoever created it.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout, not owned. */
	PipelineLayout vk.PipelineLayout
}

type VulkanPipelineConfig struct {
	/** @brief The renderpass the pipeline draws in. */
	Renderpass *VulkanRenderpass
	Layout     vk.PipelineLayout
	/** @brief Vertex and fragment stage. */
	Stages []vk.PipelineShaderStageCreateInfo
	/** @brief The baked viewport size; the pipeline is rebuilt on resize. */
	Width, Height uint32
}

// NewPipelineLayout creates a layout with the given set layouts and, when pushSize is not
// zero, one fragment stage push constant range.
func NewPipelineLayout(context *VulkanContext, setLayouts []vk.DescriptorSetLayout, pushSize uint32) (vk.PipelineLayout, error) {
	createInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	if pushSize > 0 {
		createInfo.PushConstantRangeCount = 1
		createInfo.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			Offset:     0,
			Size:       pushSize,
		}}
	}

	var layout vk.PipelineLayout
	if err := resultError("vkCreatePipelineLayout", vk.CreatePipelineLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout)); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	return layout, nil
}

func DestroyPipelineLayout(context *VulkanContext, layout vk.PipelineLayout) {
	if layout != nil {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, layout, context.Allocator)
	}
}

// NewGraphicsPipeline builds a full screen quad pipeline: no vertex input, a four vertex
// triangle strip and a viewport flipped so that y grows upwards.
func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	viewport := vk.Viewport{
		X:        0,
		Y:        float32(config.Height),
		Width:    float32(config.Width),
		Height:   -float32(config.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: config.Width, Height: config.Height},
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{scissor},
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleStrip,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlendState,
		Layout:              config.Layout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pipelines)
	if err := resultError("vkCreateGraphicsPipelines", ret); err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	core.LogDebug("Graphics pipeline created!")
	return &VulkanPipeline{Handle: pipelines[0], PipelineLayout: config.Layout}, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline != nil && pipeline.Handle != nil {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		pipeline.Handle = nil
	}
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindPipeline(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.Handle)
}

// BindDescriptorSet binds set 0 of the pipeline layout.
func (pipeline *VulkanPipeline) BindDescriptorSet(commandBuffer *VulkanCommandBuffer, set vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.PipelineLayout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
}

// PushConstants uploads fragment stage push constants.
func (pipeline *VulkanPipeline) PushConstants(commandBuffer *VulkanCommandBuffer, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(commandBuffer.Handle, pipeline.PipelineLayout, vk.ShaderStageFlags(vk.ShaderStageFragmentBit), 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

// DrawQuad draws the four generated vertices of the full screen strip.
func DrawQuad(commandBuffer *VulkanCommandBuffer) {
	vk.CmdDraw(commandBuffer.Handle, 4, 1, 0, 0)
}
