package systems

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/spaghettifunk/reel/engine/renderer/vulkan"
)

/**
 * @brief One full screen fragment pass of a program and the GPU objects that draw it.
 */
type RenderPass struct {
	Decl metadata.PassDeclaration
	/** @brief Position in the program, also the pool slot pair it writes. */
	Index int
	/** @brief Compiled fragment stage, nil until compiled. */
	Code []uint32

	Pipeline     *vulkan.VulkanPipeline
	Framebuffers [HistoryLength]*vulkan.VulkanFramebuffer
	Sets         [HistoryLength]vk.DescriptorSet
	Bindings     [HistoryLength][]Binding
	Push         metadata.PushConstants

	fragment *vulkan.VulkanShaderStage
}

// OutputSlot is the pool slot the pass writes on frames of the given parity.
func (rp *RenderPass) OutputSlot(parity int) int {
	return SlotIndex(rp.Index, parity)
}

func (rp *RenderPass) Name() string {
	if rp.Decl.OutputID != "" {
		return fmt.Sprintf("%s (%s)", rp.Decl.Type, rp.Decl.OutputID)
	}
	return rp.Decl.Type.String()
}

// Built reports whether the pipeline and both parity framebuffers exist.
func (rp *RenderPass) Built() bool {
	return rp.Pipeline != nil && rp.Framebuffers[0] != nil && rp.Framebuffers[1] != nil
}

func findOutput(passes []*RenderPass, id string) *RenderPass {
	for _, p := range passes {
		if p.Decl.Type != metadata.PassTypeCommon && p.Decl.OutputID == id {
			return p
		}
	}
	return nil
}

// ResolveBindings decides what each channel samples on frames of the given parity and
// the channel resolutions pushed with it. It has no side effects besides logging.
func (rp *RenderPass) ResolveBindings(frame *FrameContext, passes []*RenderPass, parity int) ([]Binding, metadata.PushConstants) {
	var push metadata.PushConstants
	bindings := make([]Binding, metadata.MaxChannels)
	for ch := range bindings {
		bindings[ch] = Binding{Channel: ch, Source: SourcePlaceholder2D, Sampler: metadata.DefaultSampler}
	}

	for _, in := range rp.Decl.Inputs {
		if in.Channel < 0 || in.Channel >= metadata.MaxChannels {
			continue
		}
		b := Binding{Channel: in.Channel, Source: placeholderFor(in.Type), Sampler: in.Sampler}
		// Placeholders report a zero resolution.
		var res [4]float32

		switch in.Type {
		case metadata.InputTypeBuffer:
			src := findOutput(passes, in.ID)
			if src == nil {
				core.LogWarn("Pass '%s': no pass writes buffer '%s', channel %d samples a placeholder", rp.Name(), in.ID, in.Channel)
				break
			}
			p := parity
			if src.Index == rp.Index {
				p = 1 - parity
			}
			b.Source = SourcePool
			b.Slot = src.OutputSlot(p)
			res = [4]float32{float32(frame.Width), float32(frame.Height), 1, 0}
		default:
			if st, ok := frame.Static(in.FilePath, in.Type); ok {
				b.Source = SourceStatic
				b.Path = in.FilePath
				res = [4]float32{float32(st.Width), float32(st.Height), float32(st.Depth), 0}
			}
		}

		bindings[in.Channel] = b
		push.ChannelResolution[in.Channel] = res
	}
	return bindings, push
}

// CreatePipelineAndTargets builds the framebuffers of both parities and the pipeline at the
// given size. Anything built before is destroyed first.
func (rp *RenderPass) CreatePipelineAndTargets(sm *SystemManager, width, height uint32) error {
	context := sm.GPU.Context()
	rp.destroyTargets(context)

	if len(rp.Code) == 0 {
		return fmt.Errorf("pass '%s' has no compiled code", rp.Name())
	}

	for p := 0; p < HistoryLength; p++ {
		img, err := sm.Pool.Image(rp.OutputSlot(p))
		if err != nil {
			return err
		}
		fb, err := vulkan.FramebufferCreate(context, sm.passRenderpass, width, height, img.View)
		if err != nil {
			rp.destroyTargets(context)
			return err
		}
		rp.Framebuffers[p] = fb
	}

	fragment, err := vulkan.NewShaderModule(context, rp.Code, vk.ShaderStageFragmentBit, "main")
	if err != nil {
		rp.destroyTargets(context)
		return err
	}
	rp.fragment = fragment

	pipeline, err := vulkan.NewGraphicsPipeline(context, &vulkan.VulkanPipelineConfig{
		Renderpass: sm.passRenderpass,
		Layout:     sm.passLayout,
		Stages:     []vk.PipelineShaderStageCreateInfo{sm.quadStage.ShaderStageCreateInfo, fragment.ShaderStageCreateInfo},
		Width:      width,
		Height:     height,
	})
	if err != nil {
		core.LogError("failed to create the pipeline of pass '%s': %s", rp.Name(), err)
		rp.destroyTargets(context)
		return err
	}
	rp.Pipeline = pipeline
	return nil
}

// WriteBindings resolves both parities and points their descriptor sets at the result.
func (rp *RenderPass) WriteBindings(sm *SystemManager, frame *FrameContext, passes []*RenderPass) error {
	context := sm.GPU.Context()
	if rp.Sets[0] == nil {
		sets, err := sm.passDescriptors.Allocate(context, HistoryLength)
		if err != nil {
			return err
		}
		copy(rp.Sets[:], sets)
	}

	writes := make([]vk.WriteDescriptorSet, 0, HistoryLength*(metadata.MaxChannels+1))
	for p := 0; p < HistoryLength; p++ {
		bindings, push := rp.ResolveBindings(frame, passes, p)
		for _, b := range bindings {
			img, err := sm.bindingImage(b)
			if err != nil {
				return fmt.Errorf("pass '%s' channel %d: %w", rp.Name(), b.Channel, err)
			}
			sampler, err := sm.Sampler(b.Sampler)
			if err != nil {
				return err
			}
			writes = append(writes, vulkan.ImageWrite(rp.Sets[p], uint32(b.Channel), vk.DescriptorTypeCombinedImageSampler, img.View, sampler.Handle))
		}
		writes = append(writes, vulkan.BufferWrite(rp.Sets[p], vulkan.PassUniformBinding, sm.uniformBuffer.Handle))
		rp.Bindings[p] = bindings
		// Resolutions do not depend on parity.
		rp.Push = push
	}
	vulkan.UpdateDescriptorSets(context, writes)
	return nil
}

func (rp *RenderPass) destroyTargets(context *vulkan.VulkanContext) {
	if rp.Pipeline != nil {
		rp.Pipeline.Destroy(context)
		rp.Pipeline = nil
	}
	if rp.fragment != nil {
		rp.fragment.Destroy(context)
		rp.fragment = nil
	}
	for p := range rp.Framebuffers {
		if rp.Framebuffers[p] != nil {
			rp.Framebuffers[p].Destroy(context)
			rp.Framebuffers[p] = nil
		}
	}
}

// Destroy releases the pipeline and framebuffers. Descriptor sets go back with their pool.
func (rp *RenderPass) Destroy(context *vulkan.VulkanContext) {
	rp.destroyTargets(context)
	rp.Sets = [HistoryLength]vk.DescriptorSet{}
}
