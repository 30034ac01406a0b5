package systems

import (
	"encoding/binary"
	"fmt"
	stdmath "math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/spaghettifunk/reel/engine/renderer/vulkan"
)

// GPURecorder records a frame into the command buffer returned by BeginFrame.
type GPURecorder struct {
	sm  *SystemManager
	cmd *vulkan.VulkanCommandBuffer
}

func NewGPURecorder(sm *SystemManager, cmd *vulkan.VulkanCommandBuffer) *GPURecorder {
	return &GPURecorder{sm: sm, cmd: cmd}
}

func (r *GPURecorder) target(target int) (vk.Image, error) {
	if target == SwapchainTarget {
		image, _, _ := r.sm.GPU.SwapchainTarget()
		return image, nil
	}
	img, err := r.sm.Pool.Image(target)
	if err != nil {
		return nil, err
	}
	return img.Handle, nil
}

// UpdateUniforms writes the staging buffer of the current frame slot and copies it into
// the uniform buffer the passes read.
func (r *GPURecorder) UpdateUniforms(uniforms *metadata.Uniforms) error {
	context := r.sm.GPU.Context()
	staging := r.sm.uniformStaging[context.CurrentFrame]
	if err := staging.Write(context, uniforms.Bytes()); err != nil {
		return err
	}

	dst := r.sm.uniformBuffer
	vulkan.BufferBarrier(r.cmd.Handle, dst.Handle, r.sm.uniformState, metadata.BufferStateTransferDst)
	region := vk.BufferCopy{SrcOffset: 0, DstOffset: 0, Size: vk.DeviceSize(metadata.UniformsSize)}
	vk.CmdCopyBuffer(r.cmd.Handle, staging.Handle, dst.Handle, 1, []vk.BufferCopy{region})
	vulkan.BufferBarrier(r.cmd.Handle, dst.Handle, metadata.BufferStateTransferDst, metadata.BufferStateShaderResource)
	r.sm.uniformState = metadata.BufferStateShaderResource
	return nil
}

func (r *GPURecorder) ClearImage(target int, before metadata.ImageState) error {
	image, err := r.target(target)
	if err != nil {
		return err
	}
	vulkan.ClearImage(r.cmd.Handle, image, 1, before)
	return nil
}

func (r *GPURecorder) Barrier(target int, before, after metadata.ImageState) error {
	image, err := r.target(target)
	if err != nil {
		return err
	}
	vulkan.ImageBarrier(r.cmd.Handle, image, before, after, 1)
	return nil
}

func (r *GPURecorder) DrawPass(pass *RenderPass, parity int) error {
	fb := pass.Framebuffers[parity]
	if fb == nil || pass.Pipeline == nil {
		return fmt.Errorf("pass '%s' is not built", pass.Name())
	}
	r.sm.passRenderpass.RenderpassBegin(r.cmd, fb)
	pass.Pipeline.Bind(r.cmd)
	pass.Pipeline.BindDescriptorSet(r.cmd, pass.Sets[parity])
	pass.Pipeline.PushConstants(r.cmd, pass.Push.Bytes())
	vulkan.DrawQuad(r.cmd)
	r.sm.passRenderpass.RenderpassEnd(r.cmd)
	return nil
}

func (r *GPURecorder) DrawComposite(slot int, factor float32) error {
	if err := r.sm.Pool.CheckSlot(slot); err != nil {
		return err
	}
	_, fb, _ := r.sm.GPU.SwapchainTarget()
	pipeline := r.sm.compositePipeline
	if pipeline == nil || fb == nil {
		return fmt.Errorf("composite is not built")
	}
	push := make([]byte, 4)
	binary.LittleEndian.PutUint32(push, stdmath.Float32bits(factor))

	renderpass := r.sm.GPU.Context().MainRenderpass
	renderpass.RenderpassBegin(r.cmd, fb)
	pipeline.Bind(r.cmd)
	pipeline.BindDescriptorSet(r.cmd, r.sm.compositeSets[slot])
	pipeline.PushConstants(r.cmd, push)
	vulkan.DrawQuad(r.cmd)
	renderpass.RenderpassEnd(r.cmd)
	return nil
}
