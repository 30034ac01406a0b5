package systems

import (
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

// StaticInput describes a texture or volume file that was loaded and uploaded.
type StaticInput struct {
	Type   metadata.InputType
	Width  uint32
	Height uint32
	Depth  uint32
}

// FrameContext is everything a frame reads. It is built once per frame by the player
// and never mutated afterwards.
type FrameContext struct {
	// Frames rendered since the current program started.
	FrameIndex uint64
	// History parity of this frame, FrameIndex % 2.
	Parity int
	Width  uint32
	Height uint32
	// Pool capacity, (max passes + 1) * 2 slots.
	PoolSize  int
	Uniforms  metadata.Uniforms
	Crossfade float32
	// Set while paused: no pass runs and the composite shows the last image pass output.
	Frozen bool
	// Loaded static inputs keyed by resolved file path.
	Statics map[string]StaticInput
}

// NewFrameContext derives the parity from the frame index.
func NewFrameContext(frameIndex uint64, width, height uint32, poolSize int, uniforms metadata.Uniforms, crossfade float32, statics map[string]StaticInput) *FrameContext {
	return &FrameContext{
		FrameIndex: frameIndex,
		Parity:     int(frameIndex % HistoryLength),
		Width:      width,
		Height:     height,
		PoolSize:   poolSize,
		Uniforms:   uniforms,
		Crossfade:  crossfade,
		Statics:    statics,
	}
}

// Static returns a loaded static input of the wanted type.
func (f *FrameContext) Static(path string, t metadata.InputType) (StaticInput, bool) {
	if path == "" {
		return StaticInput{}, false
	}
	s, ok := f.Statics[path]
	if !ok || s.Type != t {
		return StaticInput{}, false
	}
	return s, true
}

// BindingSource tells where the view of a channel comes from.
type BindingSource int

const (
	SourcePlaceholder2D BindingSource = iota
	SourcePlaceholderCube
	SourcePlaceholderVolume
	// A loaded texture or volume, addressed by Path.
	SourceStatic
	// A pool slot written by a buffer pass, addressed by Slot.
	SourcePool
)

func (s BindingSource) String() string {
	switch s {
	case SourcePlaceholder2D:
		return "placeholder2d"
	case SourcePlaceholderCube:
		return "placeholdercube"
	case SourcePlaceholderVolume:
		return "placeholdervolume"
	case SourceStatic:
		return "static"
	case SourcePool:
		return "pool"
	default:
		return "invalid"
	}
}

// Binding is the resolved view and sampler of one channel.
type Binding struct {
	Channel int
	Source  BindingSource
	Path    string
	Slot    int
	Sampler metadata.SamplerSpec
}

func placeholderFor(t metadata.InputType) BindingSource {
	switch t {
	case metadata.InputTypeCubemap:
		return SourcePlaceholderCube
	case metadata.InputTypeVolume:
		return SourcePlaceholderVolume
	default:
		return SourcePlaceholder2D
	}
}
