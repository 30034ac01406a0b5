package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

// ImageLoader decodes an image file into tightly packed RGBA8 rows, bottom row
// first unless told otherwise.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	flip := true
	if p, ok := params.(*metadata.ImageResourceParams); ok && p != nil {
		flip = p.FlipY
	}

	f, err := os.Open(path)
	if err != nil {
		core.LogError("failed to load image '%s'", path)
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		core.LogError("failed to load image '%s': %s", path, err)
		return nil, err
	}

	data := DecodeRGBA(img, flip)
	if data.Width == 0 || data.Height == 0 {
		return nil, fmt.Errorf("image '%s' is empty", path)
	}
	core.LogDebug("decoded %s image %dx%d: %s", format, data.Width, data.Height, path)

	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeImage,
		DataSize: uint64(len(data.Pixels)),
		Data:     data,
	}, nil
}

func (il *ImageLoader) Unload(res *metadata.Resource) error {
	if res != nil {
		res.Data = nil
	}
	return nil
}

// DecodeRGBA converts any image to straight alpha RGBA8 in an sRGB format.
func DecodeRGBA(img image.Image, flip bool) *metadata.ImageResourceData {
	b := img.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	if flip {
		flipRows(rgba.Pix, rgba.Stride, b.Dy())
	}

	return &metadata.ImageResourceData{
		ChannelCount: 4,
		Width:        uint32(b.Dx()),
		Height:       uint32(b.Dy()),
		Depth:        1,
		Format:       metadata.PixelFormatRGBA8Srgb,
		Pixels:       rgba.Pix,
	}
}

func flipRows(pix []uint8, stride, rows int) {
	tmp := make([]uint8, stride)
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pix[top*stride : (top+1)*stride]
		b := pix[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}
