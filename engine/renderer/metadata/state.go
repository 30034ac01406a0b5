package metadata

/**
 * @brief The logical state of an image. The declared state of every image
 * must match what the GPU last saw; it only changes through an explicit barrier.
 */
type ImageState int

const (
	/** @brief Contents are undefined, used for fresh or discarded images. */
	ImageStateUndefined ImageState = iota
	/** @brief Ready to be handed to the presentation engine. */
	ImageStatePresent
	/** @brief Sampled by a fragment shader. */
	ImageStateShaderResource
	/** @brief Written as a color attachment. */
	ImageStateRenderTarget
	/** @brief Source of a copy or blit. */
	ImageStateTransferSrc
	/** @brief Destination of a copy, blit or clear. */
	ImageStateTransferDst
)

// ImageStates lists every image state in declaration order.
var ImageStates = []ImageState{
	ImageStateUndefined,
	ImageStatePresent,
	ImageStateShaderResource,
	ImageStateRenderTarget,
	ImageStateTransferSrc,
	ImageStateTransferDst,
}

func (s ImageState) String() string {
	switch s {
	case ImageStateUndefined:
		return "Undefined"
	case ImageStatePresent:
		return "Present"
	case ImageStateShaderResource:
		return "ShaderResource"
	case ImageStateRenderTarget:
		return "RenderTarget"
	case ImageStateTransferSrc:
		return "TransferSrc"
	case ImageStateTransferDst:
		return "TransferDst"
	default:
		return "Invalid"
	}
}

/** @brief The logical state of a buffer. */
type BufferState int

const (
	BufferStateUndefined BufferState = iota
	BufferStateTransferSrc
	BufferStateTransferDst
	/** @brief Read as a uniform block by a fragment shader. */
	BufferStateShaderResource
)

// BufferStates lists every buffer state in declaration order.
var BufferStates = []BufferState{
	BufferStateUndefined,
	BufferStateTransferSrc,
	BufferStateTransferDst,
	BufferStateShaderResource,
}

func (s BufferState) String() string {
	switch s {
	case BufferStateUndefined:
		return "Undefined"
	case BufferStateTransferSrc:
		return "TransferSrc"
	case BufferStateTransferDst:
		return "TransferDst"
	case BufferStateShaderResource:
		return "ShaderResource"
	default:
		return "Invalid"
	}
}
