package metadata

import "fmt"

// MaxChannels is the number of sampler inputs a pass can declare.
const MaxChannels = 4

/** @brief The role of a node in a program description. */
type PassType int

const (
	/** @brief An offscreen pass whose output other passes can sample. */
	PassTypeBuffer PassType = iota
	/** @brief The terminal pass whose output is shown. */
	PassTypeImage
	/** @brief Source shared by every pass of the program. */
	PassTypeCommon
)

func ParsePassType(s string) (PassType, error) {
	switch s {
	case "buffer":
		return PassTypeBuffer, nil
	case "image":
		return PassTypeImage, nil
	case "common":
		return PassTypeCommon, nil
	default:
		return 0, fmt.Errorf("unknown pass type '%s'", s)
	}
}

func (p PassType) String() string {
	switch p {
	case PassTypeBuffer:
		return "buffer"
	case PassTypeImage:
		return "image"
	case PassTypeCommon:
		return "common"
	default:
		return "invalid"
	}
}

/** @brief What a channel input samples. */
type InputType int

const (
	InputTypeTexture InputType = iota
	InputTypeVolume
	InputTypeCubemap
	/** @brief Output of a buffer pass of the same program. */
	InputTypeBuffer
)

func ParseInputType(s string) (InputType, error) {
	switch s {
	case "texture":
		return InputTypeTexture, nil
	case "volume":
		return InputTypeVolume, nil
	case "cubemap":
		return InputTypeCubemap, nil
	case "buffer":
		return InputTypeBuffer, nil
	default:
		return 0, fmt.Errorf("unknown input type '%s'", s)
	}
}

func (i InputType) String() string {
	switch i {
	case InputTypeTexture:
		return "texture"
	case InputTypeVolume:
		return "volume"
	case InputTypeCubemap:
		return "cubemap"
	case InputTypeBuffer:
		return "buffer"
	default:
		return "invalid"
	}
}

type SamplerFilter int

const (
	SamplerFilterLinear SamplerFilter = iota
	SamplerFilterMipmap
	SamplerFilterNearest
)

type SamplerWrap int

const (
	SamplerWrapRepeat SamplerWrap = iota
	SamplerWrapClamp
)

/** @brief Sampling parameters of a channel. */
type SamplerSpec struct {
	Filter SamplerFilter
	Wrap   SamplerWrap
}

// DefaultSampler is linear filtering with clamped coordinates.
var DefaultSampler = SamplerSpec{Filter: SamplerFilterLinear, Wrap: SamplerWrapClamp}

/** @brief A declared channel input of a pass. */
type InputDeclaration struct {
	/** @brief Channel index in [0, MaxChannels). */
	Channel int
	Type    InputType
	/** @brief Output id of the source pass, buffer inputs only. */
	ID string
	/** @brief Resolved file path of a static input, empty when none. */
	FilePath string
	Sampler  SamplerSpec
}

/** @brief One node of a program description. */
type PassDeclaration struct {
	Type PassType
	/** @brief The pass output id, buffer and image passes only. */
	OutputID string
	Inputs   []InputDeclaration
	/** @brief Resolved path of the GLSL source. */
	Code string
}

/**
 * @brief The typed in-memory form of a description file.
 */
type ProgramDeclaration struct {
	/** @brief The directory the description lives in. */
	Dir    string
	Passes []PassDeclaration
}

/** @brief One playlist line: a program and how long it plays. */
type ScriptEntry struct {
	Program string
	/** @brief Seconds, scaled by the playback interval. Zero or less plays forever. */
	Duration float64
}
