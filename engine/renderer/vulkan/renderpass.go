package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/core"
)

/**
 * @brief Describes the single color attachment of a render pass.
 */
type VulkanRenderpassConfig struct {
	Format vk.Format
	LoadOp vk.AttachmentLoadOp
	/** @brief Layout the attachment is in when the pass begins. */
	InitialLayout vk.ImageLayout
	/** @brief Layout the pass leaves the attachment in. */
	FinalLayout vk.ImageLayout
	/** @brief Clear color, used when LoadOp is clear. */
	ClearColor [4]float32
}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	Config VulkanRenderpassConfig
}

// RenderpassCreate creates a render pass with one color attachment. Images are moved in
// and out of the attachment layout by explicit barriers, so initial and final layouts match.
func RenderpassCreate(context *VulkanContext, config VulkanRenderpassConfig) (*VulkanRenderpass, error) {
	out := &VulkanRenderpass{Config: config}

	colorAttachment := vk.AttachmentDescription{
		Format:         config.Format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         config.LoadOp,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  config.InitialLayout,
		FinalLayout:    config.FinalLayout,
	}

	colorAttachmentReference := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachmentReference,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if err := resultError("vkCreateRenderPass", vk.CreateRenderPass(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle)); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	out.Handle = handle
	return out, nil
}

// OffscreenRenderpassConfig is the pass every program pass renders its pool slot with.
func OffscreenRenderpassConfig(format vk.Format) VulkanRenderpassConfig {
	return VulkanRenderpassConfig{
		Format:        format,
		LoadOp:        vk.AttachmentLoadOpLoad,
		InitialLayout: vk.ImageLayoutColorAttachmentOptimal,
		FinalLayout:   vk.ImageLayoutColorAttachmentOptimal,
	}
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr != nil && vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}

func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, framebuffer *VulkanFramebuffer) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: framebuffer.Width, Height: framebuffer.Height},
		},
	}
	if vr.Config.LoadOp == vk.AttachmentLoadOpClear {
		clearValues := make([]vk.ClearValue, 1)
		clearValues[0].SetColor(vr.Config.ClearColor[:])
		beginInfo.ClearValueCount = 1
		beginInfo.PClearValues = clearValues
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) RenderpassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
