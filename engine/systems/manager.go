package systems

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/assets"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/spaghettifunk/reel/engine/renderer/vulkan"
	"github.com/spaghettifunk/reel/engine/shaders"
)

type SystemManagerConfig struct {
	MaxPasses       int
	MaxTextureCount uint32
	DecodeWorkers   int
}

/**
 * @brief Everything the programs share on the GPU: the target pool, placeholders,
 * samplers, the uniform buffer, layouts and the built-in stages. Passed explicitly to
 * whatever records or builds GPU work.
 */
type SystemManager struct {
	GPU           *vulkan.GraphicsContext
	Builtins      *shaders.BuiltinShaders
	JobSystem     *JobSystem
	TextureSystem *TextureSystem
	Pool          *TargetPool
	Placeholders  *Placeholders

	samplers map[metadata.SamplerSpec]*vulkan.Sampler

	quadStage      *vulkan.VulkanShaderStage
	compositeStage *vulkan.VulkanShaderStage

	passRenderpass  *vulkan.VulkanRenderpass
	passSetLayout   vk.DescriptorSetLayout
	passLayout      vk.PipelineLayout
	passDescriptors *vulkan.VulkanDescriptorPool

	compositeSetLayout   vk.DescriptorSetLayout
	compositeLayout      vk.PipelineLayout
	compositeDescriptors *vulkan.VulkanDescriptorPool
	compositePipeline    *vulkan.VulkanPipeline
	compositeSets        []vk.DescriptorSet

	uniformBuffer  *vulkan.Buffer
	uniformStaging []*vulkan.Buffer
	uniformState   metadata.BufferState
}

func NewSystemManager(config *SystemManagerConfig, gpu *vulkan.GraphicsContext, builtins *shaders.BuiltinShaders, am *assets.AssetManager) (*SystemManager, error) {
	if config.MaxPasses <= 0 {
		return nil, fmt.Errorf("func NewSystemManager - config.MaxPasses must be > 0")
	}
	workers := config.DecodeWorkers
	if workers <= 0 {
		workers = 1
	}
	js, err := NewJobSystem(workers, workers*2)
	if err != nil {
		return nil, err
	}
	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: config.MaxTextureCount,
	}, js, am)
	if err != nil {
		_ = js.Shutdown()
		return nil, err
	}
	return &SystemManager{
		GPU:           gpu,
		Builtins:      builtins,
		JobSystem:     js,
		TextureSystem: ts,
		Pool:          NewTargetPool(config.MaxPasses),
		samplers:      make(map[metadata.SamplerSpec]*vulkan.Sampler),
	}, nil
}

// Initialize creates the shared objects. passSets is the number of pass descriptor sets
// all programs together need.
func (sm *SystemManager) Initialize(passSets int) error {
	context := sm.GPU.Context()
	var err error

	if sm.quadStage, err = vulkan.NewShaderModule(context, sm.Builtins.QuadVertex, vk.ShaderStageVertexBit, shaders.QuadEntryPoint); err != nil {
		return err
	}
	if sm.compositeStage, err = vulkan.NewShaderModule(context, sm.Builtins.Composite, vk.ShaderStageFragmentBit, shaders.CompositeEntryPoint); err != nil {
		return err
	}

	if sm.passRenderpass, err = vulkan.RenderpassCreate(context, vulkan.OffscreenRenderpassConfig(vulkan.VulkanFormat(PoolFormat))); err != nil {
		return err
	}

	passBindings := vulkan.PassLayoutBindings()
	if sm.passSetLayout, err = vulkan.CreateDescriptorSetLayout(context, passBindings); err != nil {
		return err
	}
	if sm.passLayout, err = vulkan.NewPipelineLayout(context, []vk.DescriptorSetLayout{sm.passSetLayout}, metadata.PushConstantsSize); err != nil {
		return err
	}
	if passSets < HistoryLength {
		passSets = HistoryLength
	}
	if sm.passDescriptors, err = vulkan.NewDescriptorPool(context, sm.passSetLayout, passBindings, uint32(passSets)); err != nil {
		return err
	}

	compositeBindings := vulkan.CompositeLayoutBindings()
	if sm.compositeSetLayout, err = vulkan.CreateDescriptorSetLayout(context, compositeBindings); err != nil {
		return err
	}
	if sm.compositeLayout, err = vulkan.NewPipelineLayout(context, []vk.DescriptorSetLayout{sm.compositeSetLayout}, shaders.CompositePushSize); err != nil {
		return err
	}
	if sm.compositeDescriptors, err = vulkan.NewDescriptorPool(context, sm.compositeSetLayout, compositeBindings, uint32(sm.Pool.Size())); err != nil {
		return err
	}
	if sm.compositeSets, err = sm.compositeDescriptors.Allocate(context, sm.Pool.Size()); err != nil {
		return err
	}

	if sm.Placeholders, err = CreatePlaceholders(context); err != nil {
		return err
	}
	if _, err = sm.Sampler(metadata.DefaultSampler); err != nil {
		return err
	}

	if sm.uniformBuffer, err = vulkan.CreateBuffer(context, metadata.BufferSpec{
		Size:   metadata.UniformsSize,
		Usage:  metadata.BufferUsageUniform | metadata.BufferUsageTransferDst,
		Memory: metadata.MemoryUsageDeviceLocal,
	}); err != nil {
		return err
	}
	sm.uniformState = metadata.BufferStateUndefined
	sm.uniformStaging = make([]*vulkan.Buffer, context.FramesInFlight)
	for i := range sm.uniformStaging {
		if sm.uniformStaging[i], err = vulkan.CreateBuffer(context, metadata.BufferSpec{
			Size:   metadata.UniformsSize,
			Usage:  metadata.BufferUsageTransferSrc,
			Memory: metadata.MemoryUsageHostVisible,
		}); err != nil {
			return err
		}
	}

	core.LogDebug("System manager initialized: %d pool slots, %d pass sets", sm.Pool.Size(), passSets)
	return nil
}

// Sampler returns the sampler of a spec, creating it on first use.
func (sm *SystemManager) Sampler(spec metadata.SamplerSpec) (*vulkan.Sampler, error) {
	if s, ok := sm.samplers[spec]; ok {
		return s, nil
	}
	s, err := vulkan.CreateSampler(sm.GPU.Context(), spec)
	if err != nil {
		return nil, err
	}
	sm.samplers[spec] = s
	return s, nil
}

func (sm *SystemManager) bindingImage(b Binding) (*vulkan.Image, error) {
	switch b.Source {
	case SourcePool:
		return sm.Pool.Image(b.Slot)
	case SourceStatic:
		if img := sm.TextureSystem.Image(b.Path); img != nil {
			return img, nil
		}
		return nil, fmt.Errorf("static input '%s' is not loaded", b.Path)
	default:
		if img := sm.Placeholders.Image(b.Source); img != nil {
			return img, nil
		}
		return nil, fmt.Errorf("no image for binding source %s", b.Source)
	}
}

// CreateTargets (re)allocates the pool at the given size, rebuilds the composite pipeline
// and points every composite set at its slot. The caller must have waited for the device.
func (sm *SystemManager) CreateTargets(width, height uint32) error {
	context := sm.GPU.Context()
	if err := sm.Pool.Create(context, width, height); err != nil {
		return err
	}

	sampler, err := sm.Sampler(metadata.DefaultSampler)
	if err != nil {
		return err
	}
	writes := make([]vk.WriteDescriptorSet, 0, sm.Pool.Size())
	for slot, set := range sm.compositeSets {
		img, err := sm.Pool.Image(slot)
		if err != nil {
			return err
		}
		writes = append(writes, vulkan.ImageWrite(set, vulkan.CompositeImageBinding, vk.DescriptorTypeCombinedImageSampler, img.View, sampler.Handle))
	}
	vulkan.UpdateDescriptorSets(context, writes)

	sm.compositePipeline.Destroy(context)
	swW, swH := sm.GPU.Extent()
	sm.compositePipeline, err = vulkan.NewGraphicsPipeline(context, &vulkan.VulkanPipelineConfig{
		Renderpass: context.MainRenderpass,
		Layout:     sm.compositeLayout,
		Stages:     []vk.PipelineShaderStageCreateInfo{sm.quadStage.ShaderStageCreateInfo, sm.compositeStage.ShaderStageCreateInfo},
		Width:      swW,
		Height:     swH,
	})
	return err
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.JobSystem.Shutdown(); err != nil {
		return err
	}
	if sm.GPU == nil || sm.GPU.Context().Device == nil {
		return nil
	}
	context := sm.GPU.Context()

	if err := sm.TextureSystem.Shutdown(context); err != nil {
		return err
	}
	for _, b := range sm.uniformStaging {
		b.Destroy(context)
	}
	sm.uniformBuffer.Destroy(context)
	for spec, s := range sm.samplers {
		s.Destroy(context)
		delete(sm.samplers, spec)
	}
	sm.Placeholders.Destroy(context)
	sm.Pool.Destroy(context)

	sm.compositePipeline.Destroy(context)
	if sm.compositeDescriptors != nil {
		sm.compositeDescriptors.Destroy(context)
	}
	vulkan.DestroyPipelineLayout(context, sm.compositeLayout)
	vulkan.DestroyDescriptorSetLayout(context, sm.compositeSetLayout)

	if sm.passDescriptors != nil {
		sm.passDescriptors.Destroy(context)
	}
	vulkan.DestroyPipelineLayout(context, sm.passLayout)
	vulkan.DestroyDescriptorSetLayout(context, sm.passSetLayout)
	sm.passRenderpass.RenderpassDestroy(context)

	sm.compositeStage.Destroy(context)
	sm.quadStage.Destroy(context)
	return nil
}
