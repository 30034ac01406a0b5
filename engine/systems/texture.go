package systems

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/spaghettifunk/reel/engine/assets"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/spaghettifunk/reel/engine/renderer/vulkan"
	"golang.org/x/image/draw"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of static inputs that can be loaded at once. */
	MaxTextureCount uint32
}

/**
 * @brief Owns the images of every texture and volume channel input of the loaded programs.
 * Files are decoded by the job system and uploaded on the calling thread.
 */
type TextureSystem struct {
	Config *TextureSystemConfig

	images  map[string]*vulkan.Image
	statics map[string]StaticInput

	jobSystem    *JobSystem
	assetManager *assets.AssetManager
}

type decoded struct {
	path  string
	input metadata.InputType
	data  *metadata.ImageResourceData
}

func NewTextureSystem(config *TextureSystemConfig, js *JobSystem, am *assets.AssetManager) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError("%s", err)
		return nil, err
	}
	return &TextureSystem{
		Config:       config,
		images:       make(map[string]*vulkan.Image),
		statics:      make(map[string]StaticInput),
		jobSystem:    js,
		assetManager: am,
	}, nil
}

// MipCount halves both sides until one of them reaches a single texel.
func MipCount(width, height uint32) uint32 {
	levels := uint32(1)
	for width > 1 && height > 1 {
		width /= 2
		height /= 2
		levels++
	}
	return levels
}

// GenerateMips returns the pixels of every mip level of an RGBA8 image, level 0 first.
func GenerateMips(data *metadata.ImageResourceData, levels uint32) [][]byte {
	out := [][]byte{data.Pixels}
	prev := &image.NRGBA{
		Pix:    data.Pixels,
		Stride: int(data.Width) * 4,
		Rect:   image.Rect(0, 0, int(data.Width), int(data.Height)),
	}
	for level := uint32(1); level < levels; level++ {
		w := vulkan.MipExtent(data.Width, level)
		h := vulkan.MipExtent(data.Height, level)
		dst := image.NewNRGBA(image.Rect(0, 0, int(w), int(h)))
		draw.BiLinear.Scale(dst, dst.Bounds(), prev, prev.Bounds(), draw.Src, nil)
		out = append(out, dst.Pix)
		prev = dst
	}
	return out
}

// staticPaths lists the distinct files behind texture and volume inputs, sorted.
func staticPaths(inputs []metadata.InputDeclaration) map[string]metadata.InputType {
	paths := make(map[string]metadata.InputType)
	for _, in := range inputs {
		switch in.Type {
		case metadata.InputTypeTexture, metadata.InputTypeVolume:
			if in.FilePath == "" {
				core.LogWarn("Channel %d: %s input without a file, sampling a placeholder", in.Channel, in.Type)
				continue
			}
			paths[in.FilePath] = in.Type
		case metadata.InputTypeCubemap:
			core.LogWarn("Channel %d: cubemap inputs sample a placeholder", in.Channel)
		}
	}
	return paths
}

// LoadAll decodes every new static input in parallel and uploads the results. Files that
// fail to load are logged and left out; their channels sample a placeholder.
func (ts *TextureSystem) LoadAll(context *vulkan.VulkanContext, inputs []metadata.InputDeclaration) error {
	wanted := staticPaths(inputs)
	paths := make([]string, 0, len(wanted))
	for path := range wanted {
		if _, ok := ts.images[path]; !ok {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	free := int(ts.Config.MaxTextureCount) - len(ts.images)
	if free < 0 {
		free = 0
	}
	if len(paths) > free {
		core.LogWarn("Too many static inputs, %d of them are not loaded", len(paths)-free)
		paths = paths[:free]
	}

	var (
		wg      sync.WaitGroup
		mutex   sync.Mutex
		results []decoded
	)
	for _, path := range paths {
		path, kind := path, wanted[path]
		wg.Add(1)
		ts.jobSystem.Submit(metadata.JobTask{
			InputParams: path,
			OnStart: func(params interface{}) (interface{}, error) {
				return ts.decode(params.(string), kind)
			},
			OnComplete: func(result interface{}) {
				mutex.Lock()
				results = append(results, result.(decoded))
				mutex.Unlock()
			},
			OnFailure: func(err error) {
				core.LogWarn("Static input '%s' is not available: %s", path, err)
			},
			OnCompletionCallback: wg.Done,
		})
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].path < results[j].path })
	for _, r := range results {
		if err := ts.upload(context, r); err != nil {
			core.LogWarn("Cannot upload '%s': %s", r.path, err)
		}
	}
	core.LogInfo("Static inputs: %d loaded, %d requested", len(ts.images), len(wanted))
	return nil
}

func (ts *TextureSystem) decode(path string, kind metadata.InputType) (decoded, error) {
	resourceType := metadata.ResourceTypeImage
	var params interface{} = &metadata.ImageResourceParams{FlipY: true}
	if kind == metadata.InputTypeVolume {
		resourceType = metadata.ResourceTypeVolume
		params = nil
	}
	res, err := ts.assetManager.LoadAsset(path, resourceType, params)
	if err != nil {
		return decoded{}, err
	}
	data, ok := res.Data.(*metadata.ImageResourceData)
	if !ok || data == nil {
		return decoded{}, fmt.Errorf("'%s' did not decode to pixels", path)
	}
	return decoded{path: path, input: kind, data: data}, nil
}

func (ts *TextureSystem) upload(context *vulkan.VulkanContext, d decoded) error {
	spec := metadata.ImageSpec{
		Kind:      metadata.ImageKind2D,
		Format:    d.data.Format,
		Width:     d.data.Width,
		Height:    d.data.Height,
		Depth:     1,
		MipLevels: 1,
		Usage:     metadata.ImageUsageSampled | metadata.ImageUsageTransferDst | metadata.ImageUsageTransferSrc,
		Memory:    metadata.MemoryUsageDeviceLocal,
	}
	levels := [][]byte{d.data.Pixels}
	if d.input == metadata.InputTypeVolume {
		spec.Kind = metadata.ImageKind3D
		spec.Depth = d.data.Depth
	} else {
		spec.MipLevels = MipCount(d.data.Width, d.data.Height)
		levels = GenerateMips(d.data, spec.MipLevels)
	}

	img, err := vulkan.CreateImage(context, spec)
	if err != nil {
		return err
	}
	if err := vulkan.UploadImage(context, img, levels); err != nil {
		img.Destroy(context)
		return err
	}

	ts.images[d.path] = img
	ts.statics[d.path] = StaticInput{Type: d.input, Width: spec.Width, Height: spec.Height, Depth: spec.Depth}
	core.LogDebug("Uploaded %s '%s' (%dx%dx%d, %d levels)", d.input, d.path, spec.Width, spec.Height, spec.Depth, spec.MipLevels)
	return nil
}

// Image returns the uploaded image of a static input, nil when it is not loaded.
func (ts *TextureSystem) Image(path string) *vulkan.Image {
	return ts.images[path]
}

// Statics describes every loaded static input. The map is shared and must not be modified.
func (ts *TextureSystem) Statics() map[string]StaticInput {
	return ts.statics
}

func (ts *TextureSystem) Shutdown(context *vulkan.VulkanContext) error {
	for path, img := range ts.images {
		img.Destroy(context)
		delete(ts.images, path)
		delete(ts.statics, path)
	}
	return nil
}
