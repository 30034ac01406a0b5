package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Not a resource the player knows about. */
	ResourceTypeNone ResourceType = iota
	/** @brief Program description (description.json). */
	ResourceTypeDescription
	/** @brief Playlist script. */
	ResourceTypeScript
	/** @brief GLSL pass or common source. */
	ResourceTypeShaderSource
	/** @brief Compiled SPIR-V sidecar. */
	ResourceTypeBinary
	/** @brief Decodable image file. */
	ResourceTypeImage
	/** @brief Raw volume file with a BIN header. */
	ResourceTypeVolume
	/** @brief Project settings. */
	ResourceTypeSettings
)

func (r ResourceType) String() string {
	switch r {
	case ResourceTypeDescription:
		return "description"
	case ResourceTypeScript:
		return "script"
	case ResourceTypeShaderSource:
		return "shader"
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeVolume:
		return "volume"
	case ResourceTypeSettings:
		return "settings"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The resource type. */
	Type ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}

/** @brief The kind of image a resource factory creates. */
type ImageKind int

const (
	ImageKind2D ImageKind = iota
	/** @brief Six layer cube compatible image. */
	ImageKindCube
	/** @brief Three dimensional image. */
	ImageKind3D
)

/** @brief Where a resource's memory lives. */
type MemoryUsage int

const (
	MemoryUsageDeviceLocal MemoryUsage = iota
	/** @brief Host visible and coherent, used for staging and uploads. */
	MemoryUsageHostVisible
)

/** @brief Capabilities requested for an image. */
type ImageUsage uint32

const (
	ImageUsageSampled ImageUsage = 1 << iota
	ImageUsageTransferSrc
	ImageUsageTransferDst
	ImageUsageColorAttachment
)

/** @brief Capabilities requested for a buffer. */
type BufferUsage uint32

const (
	BufferUsageUniform BufferUsage = 1 << iota
	BufferUsageTransferSrc
	BufferUsageTransferDst
)

/**
 * @brief Everything needed to create an image, its memory and its view.
 */
type ImageSpec struct {
	Kind      ImageKind
	Format    PixelFormat
	Width     uint32
	Height    uint32
	Depth     uint32
	MipLevels uint32
	Usage     ImageUsage
	Memory    MemoryUsage
}

// Layers is the number of array layers the kind needs.
func (s ImageSpec) Layers() uint32 {
	if s.Kind == ImageKindCube {
		return 6
	}
	return 1
}

/**
 * @brief Everything needed to create a buffer and its memory.
 */
type BufferSpec struct {
	Size   uint64
	Usage  BufferUsage
	Memory MemoryUsage
}
