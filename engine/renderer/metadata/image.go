package metadata

/** @brief Pixel formats the player allocates or uploads. */
type PixelFormat int

const (
	PixelFormatUndefined PixelFormat = iota
	/** @brief 8 bit per channel color texture, sampled as sRGB. */
	PixelFormatRGBA8Srgb
	PixelFormatRGBA8Unorm
	PixelFormatRGB8Unorm
	PixelFormatRG8Unorm
	PixelFormatR8Unorm
	/** @brief Half float render target format of the feedback pool. */
	PixelFormatRGBA16Float
)

// BytesPerPixel returns the texel size of an uploadable format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGBA8Srgb, PixelFormatRGBA8Unorm:
		return 4
	case PixelFormatRGB8Unorm:
		return 3
	case PixelFormatRG8Unorm:
		return 2
	case PixelFormatR8Unorm:
		return 1
	case PixelFormatRGBA16Float:
		return 8
	default:
		return 0
	}
}

/**
 * @brief A structure to hold decoded image or volume data.
 */
type ImageResourceData struct {
	/** @brief The number of channels. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The depth of the image, 1 for 2D images. */
	Depth uint32
	/** @brief The format the pixels are laid out in. */
	Format PixelFormat
	/** @brief The pixel data of the image. */
	Pixels []uint8
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}
